package cachewrap

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	explru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/cacheapi"
	"go.uber.org/zap"
)

type expirableLruCacheAdaptor[K comparable, V any] struct {
	c *explru.LRU[K, V]
}

func (e *expirableLruCacheAdaptor[K, V]) Get(ctx context.Context, k K) (V, error) {
	v, ok := e.c.Get(k)
	if !ok {
		return v, cacheapi.ErrCacheKeyNotExist
	}
	return v, nil
}

func (e *expirableLruCacheAdaptor[K, V]) Set(ctx context.Context, k K, v V) error {
	_ = e.c.Add(k, v)
	return nil
}

func (e *expirableLruCacheAdaptor[K, V]) Del(ctx context.Context, k K) error {
	_ = e.c.Remove(k)
	return nil
}

// NewExpirableLRU holds at most size entries, each for at most ttl.
func NewExpirableLRU[K comparable, V any](size int, ttl time.Duration) cacheapi.ICache[K, V] {
	return &expirableLruCacheAdaptor[K, V]{
		c: explru.NewLRU[K, V](size, nil, ttl),
	}
}

type LimitRistrettoKey interface {
	uint64 | string | byte | int | int32 | uint32 | int64
}

type ristrettoCacheWrap[K LimitRistrettoKey, V any] struct {
	c *ristretto.Cache[K, V]
}

func (r *ristrettoCacheWrap[K, V]) Get(ctx context.Context, k K) (V, error) {
	v, ok := r.c.Get(k)
	if !ok {
		return v, cacheapi.ErrCacheKeyNotExist
	}
	return v, nil
}

// Set leaves the cost to the cost function and waits until the value is
// visible to Get.
func (r *ristrettoCacheWrap[K, V]) Set(ctx context.Context, k K, v V) error {
	_ = r.c.Set(k, v, 0)
	r.c.Wait()
	return nil
}

func (r *ristrettoCacheWrap[K, V]) Del(ctx context.Context, k K) error {
	r.c.Del(k)
	return nil
}

// NewCostRistretto bounds the total cost of the values by maxCost. minCost is
// the smallest expected value cost and sizes the admission counters.
func NewCostRistretto[K LimitRistrettoKey, V any](maxCost int64, minCost int64, cost func(v V) int64) (cacheapi.ICache[K, V], error) {
	if minCost <= 0 || minCost > maxCost {
		minCost = maxCost
	}
	c, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: maxCost / minCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Cost:        cost,
		OnEvict: func(item *ristretto.Item[V]) {
			logutil.GetLogger(context.Background()).Debug("evict cache item", zap.Int64("cost", item.Cost))
		},
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCacheWrap[K, V]{c: c}, nil
}
