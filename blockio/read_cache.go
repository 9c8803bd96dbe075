package blockio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/cacheapi"
	cachewrap "github.com/xxxsen/tgdav/cacheapi/adaptor"
	"go.uber.org/zap"
)

const (
	defaultReadCacheSize     = 16 * 1024 * 1024
	defaultReadCacheKeyLimit = 256 * 1024
)

// IReadCache keeps small blobs in memory.
type IReadCache interface {
	Cacheable(size int64) bool
	Load(ctx context.Context, filekey string, size int64, cb func(ctx context.Context) (io.ReadCloser, error)) (io.ReadSeekCloser, error)
	Forget(ctx context.Context, filekey string) error
}

type ReadCacheConfig struct {
	CacheSize    int64
	KeySizeLimit int64
}

type bytesStream struct {
	*bytes.Reader
}

func (b bytesStream) Close() error {
	return nil
}

func newBytesStream(raw []byte) io.ReadSeekCloser {
	return bytesStream{Reader: bytes.NewReader(raw)}
}

type readCacheImpl struct {
	c  *ReadCacheConfig
	l1 cacheapi.ICache[string, []byte]
}

func (r *readCacheImpl) Cacheable(size int64) bool {
	return size <= r.c.KeySizeLimit
}

func (r *readCacheImpl) Load(ctx context.Context, filekey string, size int64, cb func(ctx context.Context) (io.ReadCloser, error)) (io.ReadSeekCloser, error) {
	val, err := r.l1.Get(ctx, filekey)
	if err == nil {
		logutil.GetLogger(ctx).Debug("read blob from cache", zap.String("key", filekey))
		return newBytesStream(val), nil
	}
	rc, err := cb(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(rc, r.c.KeySizeLimit+1))
	_ = rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read blob failed, key:%s, err:%w", filekey, err)
	}
	if int64(len(raw)) <= r.c.KeySizeLimit {
		_ = r.l1.Set(ctx, filekey, raw)
	}
	return newBytesStream(raw), nil
}

func (r *readCacheImpl) Forget(ctx context.Context, filekey string) error {
	return r.l1.Del(ctx, filekey)
}

func NewReadCache(c *ReadCacheConfig) (IReadCache, error) {
	if c.CacheSize <= 0 {
		c.CacheSize = defaultReadCacheSize
	}
	if c.KeySizeLimit <= 0 {
		c.KeySizeLimit = defaultReadCacheKeyLimit
	}
	if c.KeySizeLimit > c.CacheSize {
		c.KeySizeLimit = c.CacheSize
	}
	l1, err := cachewrap.NewCostRistretto[string, []byte](c.CacheSize, c.KeySizeLimit, func(value []byte) int64 {
		return int64(len(value))
	})
	if err != nil {
		return nil, fmt.Errorf("create read cache failed, err:%w", err)
	}
	return &readCacheImpl{c: c, l1: l1}, nil
}
