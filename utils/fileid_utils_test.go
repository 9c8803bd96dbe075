package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeFileId(t *testing.T) {
	assert.Equal(t, "0000000000000001", EncodeFileId(1))
	assert.Equal(t, "8000000000000007", EncodeFileId(1<<63+7))
}

func TestBuildETag(t *testing.T) {
	a := BuildETag("1", "abc", "100")
	assert.True(t, strings.HasPrefix(a, `"`) && strings.HasSuffix(a, `"`))
	assert.Equal(t, a, BuildETag("1", "abc", "100"))
	assert.NotEqual(t, a, BuildETag("1", "abc", "101"))
	assert.NotEqual(t, ContentETag([]byte("x"), 1), ContentETag([]byte("y"), 1))
	assert.Len(t, HashKey("/a/b"), 16)
}
