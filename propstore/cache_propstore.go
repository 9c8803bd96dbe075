package propstore

import (
	"context"
	"time"

	"github.com/xxxsen/tgdav/cacheapi"
	cachewrap "github.com/xxxsen/tgdav/cacheapi/adaptor"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	defaultMaxPropCacheSize    = 10000
	defaultPropCacheExpireTime = 30 * time.Minute
)

type cachePropStore struct {
	IPropStore
	loader *cacheapi.Loader[string, map[string]string]
}

// NewCachePropStore keeps recently read property sets in an expirable LRU.
func NewCachePropStore(impl IPropStore, size int) IPropStore {
	if size <= 0 {
		size = defaultMaxPropCacheSize
	}
	cc := cachewrap.NewExpirableLRU[string, map[string]string](size, defaultPropCacheExpireTime)
	c := &cachePropStore{IPropStore: impl}
	c.loader = cacheapi.NewLoader(cc, func(ctx context.Context, p string) (map[string]string, bool, error) {
		props, err := impl.GetProps(ctx, p)
		if err != nil {
			return nil, false, err
		}
		return props, true, nil
	})
	return c
}

func (c *cachePropStore) GetProps(ctx context.Context, path string) (map[string]string, error) {
	path = webdav.CleanPath(path)
	m, _, err := c.loader.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return cloneProps(m), nil
}

func (c *cachePropStore) invalidate(ctx context.Context, paths ...string) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, webdav.CleanPath(p))
	}
	_ = c.loader.Forget(ctx, keys...)
}

func (c *cachePropStore) Apply(ctx context.Context, path string, set map[string]string, remove []string) error {
	defer c.invalidate(ctx, path)
	return c.IPropStore.Apply(ctx, path, set, remove)
}

func (c *cachePropStore) CopyProps(ctx context.Context, src string, dst string) error {
	defer c.invalidate(ctx, dst)
	return c.IPropStore.CopyProps(ctx, src, dst)
}

func (c *cachePropStore) MoveProps(ctx context.Context, src string, dst string) error {
	defer c.invalidate(ctx, src, dst)
	return c.IPropStore.MoveProps(ctx, src, dst)
}

func (c *cachePropStore) DeleteProps(ctx context.Context, path string) error {
	defer c.invalidate(ctx, path)
	return c.IPropStore.DeleteProps(ctx, path)
}
