package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/tgdav/blockio"
	_ "github.com/xxxsen/tgdav/blockio/mem"
)

func TestUploadDownloadRemove(t *testing.T) {
	dir, err := os.MkdirTemp("", "tgdav-blob-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, name := range []string{"local", "mem"} {
		bio, err := blockio.Create(name, map[string]interface{}{"dir": dir})
		require.NoError(t, err)
		assert.Equal(t, name, bio.Name())
		assert.Greater(t, bio.MaxFileSize(), int64(0))
		ctx := context.Background()
		key, size, err := bio.Upload(ctx, bytes.NewReader([]byte("0123456789")))
		require.NoError(t, err)
		assert.Equal(t, int64(10), size)

		rc, err := bio.Download(ctx, key, 4)
		require.NoError(t, err)
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		assert.Equal(t, "456789", string(raw))

		ckey, csize, err := blockio.Clone(ctx, bio, key)
		require.NoError(t, err)
		assert.NotEqual(t, key, ckey)
		assert.Equal(t, int64(10), csize)

		require.NoError(t, bio.Remove(ctx, key))
		require.NoError(t, bio.Remove(ctx, key))
		rc, err = bio.Download(ctx, ckey, 0)
		require.NoError(t, err)
		raw, err = io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		assert.Equal(t, "0123456789", string(raw))
		_, err = bio.Download(ctx, key, 0)
		assert.Error(t, err)
	}
	assert.Equal(t, []string{"local", "mem"}, blockio.List())
}

func TestNewWithoutDir(t *testing.T) {
	_, err := New("", 0)
	assert.Error(t, err)
}
