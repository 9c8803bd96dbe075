package memfs

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/lockstore"
	"github.com/xxxsen/tgdav/propstore"
	"github.com/xxxsen/tgdav/webdav"
)

type node struct {
	collection bool
	data       []byte
	mediaType  string
	ctime      time.Time
	mtime      time.Time
}

func (n *node) clone() *node {
	c := *n
	c.data = append([]byte(nil), n.data...)
	return &c
}

type config struct {
	locks    lockstore.ILockStore
	props    propstore.IPropStore
	baseOpts []backend.BaseOption
}

type Option func(c *config)

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

func WithBaseOptions(opts ...backend.BaseOption) Option {
	return func(c *config) {
		c.baseOpts = append(c.baseOpts, opts...)
	}
}

// FS keeps a whole resource tree in memory.
type FS struct {
	*backend.Base
	locks lockstore.ILockStore
	props propstore.IPropStore

	mu    sync.RWMutex
	nodes map[string]*node
}

func New(opts ...Option) *FS {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.locks == nil {
		c.locks = lockstore.NewMemLockStore()
	}
	if c.props == nil {
		c.props = propstore.NewMemPropStore()
	}
	now := time.Now()
	return &FS{
		Base:  backend.NewBase(c.baseOpts...),
		locks: c.locks,
		props: c.props,
		nodes: map[string]*node{
			"/": {collection: true, ctime: now, mtime: now},
		},
	}
}

func (fs *FS) lookup(p string) (*node, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.nodes[p]
	if !ok {
		return nil, false
	}
	return n.clone(), true
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
	n, ok := fs.lookup(p)
	if !ok {
		return nil, webdav.ErrResourceNotFound
	}
	return fs.newResource(p, base, n.collection), nil
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

// insert requires a collection parent and a free slot, fs.mu must be held.
func (fs *FS) insert(p string, n *node) error {
	if _, ok := fs.nodes[p]; ok {
		return webdav.ErrResourceExists
	}
	parent, ok := fs.nodes[webdav.ParentPath(p)]
	if !ok || !parent.collection {
		return webdav.ErrResourceTreeNotComplete
	}
	fs.nodes[p] = n
	parent.mtime = n.mtime
	return nil
}

// remove drops p and everything below it, fs.mu must be held.
func (fs *FS) remove(p string) []string {
	rs := make([]string, 0, 1)
	for k := range fs.nodes {
		if k == p || webdav.IsAncestorPath(p, k) {
			delete(fs.nodes, k)
			rs = append(rs, k)
		}
	}
	return rs
}

func (fs *FS) members(p string) []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	rs := make([]string, 0, 8)
	for k := range fs.nodes {
		if k != "/" && webdav.ParentPath(k) == p {
			rs = append(rs, k)
		}
	}
	sort.Strings(rs)
	return rs
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
