package backend

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/xxxsen/tgdav/lockstore"
	"github.com/xxxsen/tgdav/webdav"
)

// Location carries the naming part of a resource.
type Location struct {
	path       string
	base       *url.URL
	collection bool
}

func NewLocation(p string, base *url.URL, collection bool) Location {
	return Location{path: webdav.CleanPath(p), base: base, collection: collection}
}

// ParseLocation maps u below base to a clean path, a trailing slash marks a
// collection.
func ParseLocation(u *url.URL, base *url.URL) (string, bool, error) {
	p, err := webdav.RelativePath(u, base)
	if err != nil {
		return "", false, err
	}
	return p, p == "/" || strings.HasSuffix(u.Path, "/"), nil
}

func (l Location) GetCanonicalName() string {
	if l.path == "/" {
		return ""
	}
	return path.Base(l.path)
}

func (l Location) GetCanonicalPath() string {
	return l.path
}

func (l Location) GetCanonicalURL() string {
	return webdav.JoinURL(l.base, l.path, l.collection).String()
}

func (l Location) IsCollection() bool {
	return l.collection
}

func (l Location) Base() *url.URL {
	return l.base
}

// LockSupport implements the lock methods of a resource over a lock store.
type LockSupport struct {
	store lockstore.ILockStore
	path  string
}

func NewLockSupport(store lockstore.ILockStore, p string) LockSupport {
	return LockSupport{store: store, path: webdav.CleanPath(p)}
}

func (s LockSupport) GetLocks(ctx context.Context) ([]*webdav.Lock, error) {
	return s.store.GetLocks(ctx, s.path)
}

func (s LockSupport) GetLocksByUser(ctx context.Context, user webdav.IUser) ([]*webdav.Lock, error) {
	locks, err := s.GetLocks(ctx)
	if err != nil {
		return nil, err
	}
	rs := make([]*webdav.Lock, 0, len(locks))
	for _, l := range locks {
		if user != nil && l.Username == user.GetUsername() {
			rs = append(rs, l)
		}
	}
	return rs, nil
}

func (s LockSupport) CreateLockForUser(ctx context.Context, user webdav.IUser, opts *webdav.LockOptions) (*webdav.Lock, error) {
	l := webdav.NewLock(s.path, user, opts)
	if err := s.store.SaveLock(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s LockSupport) SaveLock(ctx context.Context, l *webdav.Lock) error {
	l.Path = s.path
	return s.store.SaveLock(ctx, l)
}

func (s LockSupport) DeleteLock(ctx context.Context, token string) error {
	return s.store.DeleteLock(ctx, token)
}

// DropLocks removes every lock rooted at the resource.
func (s LockSupport) DropLocks(ctx context.Context) error {
	return s.store.DeleteLocksByPath(ctx, s.path)
}
