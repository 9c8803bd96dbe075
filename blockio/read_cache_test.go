package blockio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCache(t *testing.T) {
	cc, err := NewReadCache(&ReadCacheConfig{CacheSize: 1024, KeySizeLimit: 16})
	require.NoError(t, err)
	ctx := context.Background()
	calls := 0
	source := func(sz int) func(ctx context.Context) (io.ReadCloser, error) {
		return func(ctx context.Context) (io.ReadCloser, error) {
			calls++
			return io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), sz))), nil
		}
	}
	assert.True(t, cc.Cacheable(16))
	assert.False(t, cc.Cacheable(17))

	rsc, err := cc.Load(ctx, "k1", 8, source(8))
	require.NoError(t, err)
	_, err = rsc.Seek(4, io.SeekStart)
	require.NoError(t, err)
	raw, err := io.ReadAll(rsc)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(raw))
	assert.Equal(t, 1, calls)

	impl := cc.(*readCacheImpl)
	val, err := impl.l1.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, val, 8)

	require.NoError(t, cc.Forget(ctx, "k1"))
	_, err = impl.l1.Get(ctx, "k1")
	assert.Error(t, err)

	rsc, err = cc.Load(ctx, "big", 32, source(32))
	require.NoError(t, err)
	raw, err = io.ReadAll(rsc)
	require.NoError(t, err)
	assert.Len(t, raw, 17)
	_, err = impl.l1.Get(ctx, "big")
	assert.Error(t, err)
}
