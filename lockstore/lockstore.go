package lockstore

import (
	"context"
	"time"

	"github.com/xxxsen/tgdav/webdav"
)

// ILockStore persists write locks by resource path. Expired locks are never
// returned and are dropped lazily on read.
type ILockStore interface {
	GetLocks(ctx context.Context, path string) ([]*webdav.Lock, error)
	// SaveLock inserts or replaces the lock with the same token.
	SaveLock(ctx context.Context, l *webdav.Lock) error
	// DeleteLock is idempotent, unknown tokens are not an error.
	DeleteLock(ctx context.Context, token string) error
	DeleteLocksByPath(ctx context.Context, path string) error
}

func cloneLock(l *webdav.Lock) *webdav.Lock {
	c := *l
	return &c
}

func splitExpired(locks []*webdav.Lock, now time.Time) ([]*webdav.Lock, []*webdav.Lock) {
	alive := make([]*webdav.Lock, 0, len(locks))
	expired := make([]*webdav.Lock, 0)
	for _, l := range locks {
		if l.IsExpired(now) {
			expired = append(expired, l)
			continue
		}
		alive = append(alive, l)
	}
	return alive, expired
}
