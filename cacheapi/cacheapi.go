package cacheapi

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

var (
	ErrCacheKeyNotExist = errors.New("cache key not exist")
)

type ICacheGetter[K comparable, V any] interface {
	Get(ctx context.Context, k K) (V, error)
}

type ICacheSetter[K comparable, V any] interface {
	Set(ctx context.Context, k K, v V) error
}

type ICacheDeleter[K comparable] interface {
	Del(ctx context.Context, k K) error
}

type ICache[K comparable, V any] interface {
	ICacheGetter[K, V]
	ICacheSetter[K, V]
	ICacheDeleter[K]
}

// LoadFunc fetches the value behind a missed key. ok=false means the key has
// no value, nothing is cached then.
type LoadFunc[K comparable, V any] func(ctx context.Context, k K) (V, bool, error)

// Loader fills a cache on misses. Concurrent misses on one key share a single
// fetch.
type Loader[K comparable, V any] struct {
	c  ICache[K, V]
	fn LoadFunc[K, V]
	g  singleflight.Group
}

func NewLoader[K comparable, V any](c ICache[K, V], fn LoadFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{c: c, fn: fn}
}

func (l *Loader[K, V]) Get(ctx context.Context, k K) (V, bool, error) {
	var zero V
	v, err := l.c.Get(ctx, k)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, ErrCacheKeyNotExist) {
		return zero, false, err
	}
	res, err, _ := l.g.Do(fmt.Sprint(k), func() (interface{}, error) {
		v, ok, err := l.fn(ctx, k)
		if err != nil || !ok {
			return nil, err
		}
		_ = l.c.Set(ctx, k, v)
		return v, nil
	})
	if err != nil {
		return zero, false, err
	}
	if res == nil {
		return zero, false, nil
	}
	return res.(V), true, nil
}

// Forget drops the keys from the cache and detaches running fetches so later
// misses start a new one.
func (l *Loader[K, V]) Forget(ctx context.Context, ks ...K) error {
	for _, k := range ks {
		l.g.Forget(fmt.Sprint(k))
	}
	return DelMany[K](ctx, l.c, ks...)
}

// DelMany drops every key, the first failure is returned after all keys were tried.
func DelMany[K comparable](ctx context.Context, c ICacheDeleter[K], ks ...K) error {
	var first error
	for _, k := range ks {
		if err := c.Del(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}
