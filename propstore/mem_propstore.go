package propstore

import (
	"context"
	"sync"

	"github.com/xxxsen/tgdav/webdav"
)

type memPropStore struct {
	mu    sync.RWMutex
	props map[string]map[string]string
}

func NewMemPropStore() IPropStore {
	return &memPropStore{props: make(map[string]map[string]string)}
}

func (m *memPropStore) GetProps(ctx context.Context, path string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneProps(m.props[webdav.CleanPath(path)]), nil
}

func (m *memPropStore) Apply(ctx context.Context, path string, set map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = webdav.CleanPath(path)
	cur, ok := m.props[path]
	if !ok {
		cur = make(map[string]string, len(set))
	}
	for _, name := range remove {
		delete(cur, name)
	}
	for k, v := range set {
		cur[k] = v
	}
	if len(cur) == 0 {
		delete(m.props, path)
		return nil
	}
	m.props[path] = cur
	return nil
}

func (m *memPropStore) CopyProps(ctx context.Context, src string, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = webdav.CleanPath(src), webdav.CleanPath(dst)
	cur, ok := m.props[src]
	if !ok {
		delete(m.props, dst)
		return nil
	}
	m.props[dst] = cloneProps(cur)
	return nil
}

func (m *memPropStore) MoveProps(ctx context.Context, src string, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = webdav.CleanPath(src), webdav.CleanPath(dst)
	cur, ok := m.props[src]
	delete(m.props, dst)
	if !ok {
		return nil
	}
	delete(m.props, src)
	m.props[dst] = cur
	return nil
}

func (m *memPropStore) DeleteProps(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.props, webdav.CleanPath(path))
	return nil
}
