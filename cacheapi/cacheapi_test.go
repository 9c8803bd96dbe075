package cacheapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

func newMapCache[K comparable, V any]() *mapCache[K, V] {
	return &mapCache[K, V]{m: map[K]V{}}
}

func (s *mapCache[K, V]) Get(ctx context.Context, k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[k]
	if !ok {
		return v, ErrCacheKeyNotExist
	}
	return v, nil
}

func (s *mapCache[K, V]) Set(ctx context.Context, k K, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = v
	return nil
}

func (s *mapCache[K, V]) Del(ctx context.Context, k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, k)
	return nil
}

func TestLoaderFillsCache(t *testing.T) {
	ctx := context.Background()
	c := newMapCache[string, int]()
	var calls atomic.Int32
	l := NewLoader[string, int](c, func(ctx context.Context, k string) (int, bool, error) {
		calls.Add(1)
		return len(k), true, nil
	})
	v, ok, err := l.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, _, err = l.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, l.Forget(ctx, "abc", "missing"))
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrCacheKeyNotExist)
	_, _, err = l.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoaderNotFoundNotCached(t *testing.T) {
	ctx := context.Background()
	c := newMapCache[string, []string]()
	calls := 0
	l := NewLoader[string, []string](c, func(ctx context.Context, k string) ([]string, bool, error) {
		calls++
		return nil, false, nil
	})
	for i := 0; i < 2; i++ {
		v, ok, err := l.Get(ctx, "/a")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	}
	assert.Equal(t, 2, calls)
}

func TestLoaderError(t *testing.T) {
	ctx := context.Background()
	c := newMapCache[int, int]()
	bad := errors.New("boom")
	l := NewLoader[int, int](c, func(ctx context.Context, k int) (int, bool, error) {
		return 0, false, bad
	})
	_, _, err := l.Get(ctx, 1)
	assert.ErrorIs(t, err, bad)
	_, err = c.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheKeyNotExist)
}

func TestLoaderSharesConcurrentMiss(t *testing.T) {
	ctx := context.Background()
	c := newMapCache[string, string]()
	var calls atomic.Int32
	release := make(chan struct{})
	l := NewLoader[string, string](c, func(ctx context.Context, k string) (string, bool, error) {
		calls.Add(1)
		<-release
		return "v:" + k, true, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok, err := l.Get(ctx, "k")
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v:k", v)
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestDelMany(t *testing.T) {
	ctx := context.Background()
	c := newMapCache[string, int]()
	for k, v := range map[string]int{"a": 1, "b": 2, "c": 3} {
		require.NoError(t, c.Set(ctx, k, v))
	}
	assert.NoError(t, DelMany[string](ctx, c, "a", "c", "missing"))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheKeyNotExist)
	v, err := c.Get(ctx, "b")
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
}
