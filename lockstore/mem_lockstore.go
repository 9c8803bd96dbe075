package lockstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/tgdav/webdav"
)

type memLockStore struct {
	mu    sync.Mutex
	locks map[string]*webdav.Lock
}

func NewMemLockStore() ILockStore {
	return &memLockStore{locks: make(map[string]*webdav.Lock)}
}

func (m *memLockStore) GetLocks(ctx context.Context, path string) ([]*webdav.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = webdav.CleanPath(path)
	rs := make([]*webdav.Lock, 0, 2)
	for _, l := range m.locks {
		if l.Path == path {
			rs = append(rs, l)
		}
	}
	alive, expired := splitExpired(rs, time.Now())
	for _, l := range expired {
		delete(m.locks, l.Token)
	}
	sort.Slice(alive, func(i, j int) bool {
		return alive[i].CreatedAt.Before(alive[j].CreatedAt)
	})
	out := make([]*webdav.Lock, 0, len(alive))
	for _, l := range alive {
		out = append(out, cloneLock(l))
	}
	return out, nil
}

func (m *memLockStore) SaveLock(ctx context.Context, l *webdav.Lock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneLock(l)
	c.Path = webdav.CleanPath(c.Path)
	m.locks[c.Token] = c
	return nil
}

func (m *memLockStore) DeleteLock(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, token)
	return nil
}

func (m *memLockStore) DeleteLocksByPath(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = webdav.CleanPath(path)
	for token, l := range m.locks {
		if l.Path == path {
			delete(m.locks, token)
		}
	}
	return nil
}
