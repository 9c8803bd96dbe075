package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xxxsen/tgdav/auth"
	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/backend/dbfs"
	"github.com/xxxsen/tgdav/backend/memfs"
	"github.com/xxxsen/tgdav/blockio"
	_ "github.com/xxxsen/tgdav/blockio/register"
	"github.com/xxxsen/tgdav/config"
	"github.com/xxxsen/tgdav/db"
	"github.com/xxxsen/tgdav/plugin"
	_ "github.com/xxxsen/tgdav/plugin/register"
	"github.com/xxxsen/tgdav/webdav"
)

// app is everything serve needs, assembled from the config.
type app struct {
	handler       http.Handler
	blob          blockio.IBlockIO
	plugins       []string
	maxUploadSize int64
}

func buildAdapter(ctx context.Context, c *config.Config) (webdav.IAdapter, blockio.IBlockIO, error) {
	baseOpts := []backend.BaseOption{backend.WithAnonymousRead(c.AllowAnonymous)}
	if len(c.Webdav.OptionsCache) > 0 {
		baseOpts = append(baseOpts, backend.WithOptionsCacheControl(c.Webdav.OptionsCache))
	}
	if c.Webdav.Backend == config.BackendMem {
		return memfs.New(memfs.WithBaseOptions(baseOpts...)), nil, nil
	}
	if err := db.InitDB(c.DBFile); err != nil {
		return nil, nil, fmt.Errorf("init db failed, file:%s, err:%w", c.DBFile, err)
	}
	bio, err := blockio.Create(c.Blob.Kind, c.Blob.Args)
	if err != nil {
		return nil, nil, fmt.Errorf("init block io failed, kind:%s, err:%w", c.Blob.Kind, err)
	}
	bio = blockio.NewRotateIO(bio, c.Blob.RotateStream)
	rc, err := blockio.NewReadCache(&blockio.ReadCacheConfig{
		CacheSize:    c.Blob.ReadCacheSize,
		KeySizeLimit: c.Blob.ReadCacheKeyLimit,
	})
	if err != nil {
		return nil, nil, err
	}
	fs, err := dbfs.New(ctx, db.GetClient(), bio,
		dbfs.WithReadCache(rc),
		dbfs.WithPropCacheSize(c.Webdav.PropCacheSize),
		dbfs.WithBaseOptions(baseOpts...),
	)
	if err != nil {
		return nil, nil, err
	}
	return fs, bio, nil
}

func buildPlugins(c *config.Config) ([]webdav.IPlugin, error) {
	rs := make([]webdav.IPlugin, 0, len(c.Plugins))
	for _, pc := range c.Plugins {
		p, err := plugin.Create(pc.Name, pc.Args)
		if err != nil {
			return nil, fmt.Errorf("create plugin failed, name:%s, err:%w", pc.Name, err)
		}
		rs = append(rs, p)
	}
	return rs, nil
}

func buildApp(ctx context.Context, c *config.Config) (*app, error) {
	plugins, err := buildPlugins(c)
	if err != nil {
		return nil, err
	}
	adapter, bio, err := buildAdapter(ctx, c)
	if err != nil {
		return nil, err
	}
	h, err := webdav.New(adapter,
		webdav.WithPrefix(c.Webdav.Prefix),
		webdav.WithAuthenticator(auth.NewAuthenticator(c.UserInfo, auth.WithAnonymous(c.AllowAnonymous))),
		webdav.WithPlugins(plugins...),
		webdav.WithLockTimeout(time.Duration(c.Webdav.LockTimeout)*time.Second, time.Duration(c.Webdav.MaxLockTimeout)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("init webdav handler failed, err:%w", err)
	}
	a := &app{handler: h, blob: bio, maxUploadSize: c.Blob.MaxUploadSize}
	for _, p := range plugins {
		a.plugins = append(a.plugins, p.Name())
	}
	if a.maxUploadSize == 0 && bio != nil {
		a.maxUploadSize = bio.MaxFileSize()
	}
	return a, nil
}
