package dbfs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/idgen"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/blockio"
	"github.com/xxxsen/tgdav/db"
	"github.com/xxxsen/tgdav/lockstore"
	"github.com/xxxsen/tgdav/propstore"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
)

type IDGenFunc func() uint64

type config struct {
	tab           string
	idfn          IDGenFunc
	cache         blockio.IReadCache
	locks         lockstore.ILockStore
	props         propstore.IPropStore
	propCacheSize int
	baseOpts      []backend.BaseOption
}

type Option func(c *config)

func WithTable(tab string) Option {
	return func(c *config) {
		c.tab = tab
	}
}

func WithIDGen(fn IDGenFunc) Option {
	return func(c *config) {
		c.idfn = fn
	}
}

func WithReadCache(rc blockio.IReadCache) Option {
	return func(c *config) {
		c.cache = rc
	}
}

func WithLockStore(s lockstore.ILockStore) Option {
	return func(c *config) {
		c.locks = s
	}
}

func WithPropStore(s propstore.IPropStore) Option {
	return func(c *config) {
		c.props = s
	}
}

// WithPropCacheSize puts an LRU in front of the property table, 0 disables it.
func WithPropCacheSize(sz int) Option {
	return func(c *config) {
		c.propCacheSize = sz
	}
}

func WithBaseOptions(opts ...backend.BaseOption) Option {
	return func(c *config) {
		c.baseOpts = append(c.baseOpts, opts...)
	}
}

// FS stores the resource tree in the entry table and file bodies in a
// blockio.
type FS struct {
	*backend.Base
	db    database.IDatabase
	tab   string
	idfn  IDGenFunc
	bio   blockio.IBlockIO
	cache blockio.IReadCache
	locks lockstore.ILockStore
	props propstore.IPropStore
}

func New(ctx context.Context, client database.IDatabase, bio blockio.IBlockIO, opts ...Option) (*FS, error) {
	c := &config{tab: db.EntryTable}
	for _, opt := range opts {
		opt(c)
	}
	if c.idfn == nil {
		c.idfn = idgen.Default().NextId
	}
	if c.locks == nil {
		c.locks = lockstore.NewDBLockStore(client, db.LockTable)
	}
	if c.props == nil {
		c.props = propstore.NewDBPropStore(client, db.PropertyTable)
		if c.propCacheSize > 0 {
			c.props = propstore.NewCachePropStore(c.props, c.propCacheSize)
		}
	}
	fs := &FS{
		Base:  backend.NewBase(c.baseOpts...),
		db:    client,
		tab:   c.tab,
		idfn:  c.idfn,
		bio:   bio,
		cache: c.cache,
		locks: c.locks,
		props: c.props,
	}
	if err := client.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		_, err := fs.txCreateRoot(ctx, tx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("init root entry failed, err:%w", err)
	}
	return fs, nil
}

func (fs *FS) stat(ctx context.Context, p string) (*entryTab, error) {
	ent, ok, err := fs.txLookup(ctx, fs.db, p)
	if err != nil {
		return nil, fmt.Errorf("lookup entry failed, path:%s, err:%w", p, err)
	}
	if !ok {
		return nil, fmt.Errorf("path:%s, %w", p, webdav.ErrResourceNotFound)
	}
	return ent, nil
}

func (fs *FS) newResource(p string, base *url.URL, collection bool) *resource {
	return &resource{
		Location:    backend.NewLocation(p, base, collection),
		LockSupport: backend.NewLockSupport(fs.locks, p),
		fs:          fs,
	}
}

func (fs *FS) GetResource(ctx context.Context, u *url.URL, base *url.URL) (webdav.IResource, error) {
	p, _, err := backend.ParseLocation(u, base)
	if err != nil {
		return nil, err
	}
	ent, err := fs.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	return fs.newResource(p, base, ent.isDir()), nil
}

func (fs *FS) NewResource(ctx context.Context, u *url.URL, base *url.URL) (webdav.IResource, error) {
	p, _, err := backend.ParseLocation(u, base)
	if err != nil {
		return nil, err
	}
	return fs.newResource(p, base, false), nil
}

func (fs *FS) NewCollection(ctx context.Context, u *url.URL, base *url.URL) (webdav.IResource, error) {
	p, _, err := backend.ParseLocation(u, base)
	if err != nil {
		return nil, err
	}
	return fs.newResource(p, base, true), nil
}

// dropBlobs runs after the entry table changes were committed, a failure only
// leaks storage.
func (fs *FS) dropBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		if fs.cache != nil {
			_ = fs.cache.Forget(ctx, key)
		}
		if err := fs.bio.Remove(ctx, key); err != nil {
			logutil.GetLogger(ctx).Error("remove blob failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (fs *FS) dropMeta(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := fs.locks.DeleteLocksByPath(ctx, p); err != nil {
			return err
		}
		if err := fs.props.DeleteProps(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
