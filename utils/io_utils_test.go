package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failReader struct{}

func (failReader) Read(p []byte) (int, error) {
	return 0, errors.New("broken")
}

func TestSaveStreamToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b.blob")
	n, err := SaveStreamToFile(dst, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	_, err = SaveStreamToFile(dst, io.MultiReader(strings.NewReader("xx"), failReader{}))
	assert.Error(t, err)
	raw, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
	items, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
