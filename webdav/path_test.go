package webdav

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/", CleanPath("/"))
	assert.Equal(t, "/a/b", CleanPath("a/b/"))
	assert.Equal(t, "/b", CleanPath("/a/../b"))
	assert.Equal(t, "/", CleanPath("/../.."))
}

func TestAncestorPaths(t *testing.T) {
	assert.Equal(t, []string{"/a/b", "/a", "/"}, AncestorPaths("/a/b/c"))
	assert.Equal(t, 0, len(AncestorPaths("/")))
	assert.True(t, IsAncestorPath("/", "/a"))
	assert.True(t, IsAncestorPath("/a", "/a/b/c"))
	assert.False(t, IsAncestorPath("/a", "/ab"))
	assert.False(t, IsAncestorPath("/a", "/a"))
	assert.Equal(t, "/a", ParentPath("/a/b"))
	assert.Equal(t, "/", ParentPath("/"))
}

func TestRelativePath(t *testing.T) {
	base, _ := url.Parse("http://127.0.0.1:8080/dav/")
	u, _ := url.Parse("http://127.0.0.1:8080/dav/hello/world.txt")
	p, err := RelativePath(u, base)
	assert.NoError(t, err)
	assert.Equal(t, "/hello/world.txt", p)

	u, _ = url.Parse("/dav")
	p, err = RelativePath(u, base)
	assert.NoError(t, err)
	assert.Equal(t, "/", p)

	u, _ = url.Parse("/davx/a")
	_, err = RelativePath(u, base)
	assert.ErrorIs(t, err, ErrBadGateway)

	u, _ = url.Parse("http://other.host/dav/a")
	_, err = RelativePath(u, base)
	assert.ErrorIs(t, err, ErrBadGateway)

	u, _ = url.Parse("/dav/../etc/passwd")
	_, err = RelativePath(u, base)
	assert.ErrorIs(t, err, ErrBadGateway)
}

func TestJoinURL(t *testing.T) {
	base, _ := url.Parse("http://127.0.0.1/dav")
	assert.Equal(t, "http://127.0.0.1/dav/a%20b/", JoinURL(base, "/a b", true).String())
	assert.Equal(t, "http://127.0.0.1/dav/a.txt", JoinURL(base, "a.txt", false).String())
	assert.Equal(t, "http://127.0.0.1/dav/", JoinURL(base, "/", true).String())
}
