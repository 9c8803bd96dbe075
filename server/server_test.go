package server

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studio-b12/gowebdav"
	"github.com/xxxsen/tgdav/auth"
	"github.com/xxxsen/tgdav/backend/memfs"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	testUser = "abc"
	testPass = "123456"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	h, err := webdav.New(memfs.New(),
		webdav.WithPrefix("/dav"),
		webdav.WithAuthenticator(auth.NewAuthenticator(map[string]string{testUser: testPass})),
	)
	require.NoError(t, err)
	svr := newServer(h, append([]Option{WithPrefix("/dav")}, opts...)...)
	engine := gin.New()
	svr.initAPI(&engine.RouterGroup)
	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return ts
}

func TestMethods(t *testing.T) {
	ms := Methods()
	assert.Contains(t, ms, webdav.MethodPropfind)
	assert.Contains(t, ms, webdav.MethodSearch)
	assert.Equal(t, len(webdav.BaselineMethods())+1, len(ms))
}

func TestGowebdavClient(t *testing.T) {
	ts := newTestServer(t)
	client := gowebdav.NewClient(ts.URL+"/dav", testUser, testPass)
	require.NoError(t, client.Connect())

	require.NoError(t, client.Mkdir("/docs", 0755))
	require.NoError(t, client.Write("/docs/a.txt", []byte("hello world"), 0644))
	require.NoError(t, client.Write("/docs/b.txt", []byte("bye"), 0644))

	raw, err := client.Read("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(raw))

	fi, err := client.Stat("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), fi.Size())
	assert.False(t, fi.IsDir())

	items, err := client.ReadDir("/docs")
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	require.NoError(t, client.Copy("/docs/a.txt", "/docs/c.txt", false))
	require.NoError(t, client.Rename("/docs/b.txt", "/moved.txt", true))
	raw, err = client.Read("/moved.txt")
	require.NoError(t, err)
	assert.Equal(t, "bye", string(raw))
	_, err = client.Stat("/docs/b.txt")
	assert.Error(t, err)

	require.NoError(t, client.Remove("/docs"))
	_, err = client.Stat("/docs/c.txt")
	assert.Error(t, err)
}

func TestWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	r, err := http.NewRequest(webdav.MethodPropfind, ts.URL+"/dav/", nil)
	require.NoError(t, err)
	r.SetBasicAuth(testUser, "bad")
	rsp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	assert.Equal(t, `Basic realm="Restricted Area"`, rsp.Header.Get("WWW-Authenticate"))
}

func TestUploadLimit(t *testing.T) {
	ts := newTestServer(t, WithMaxUploadSize(4))
	put := func(body string) int {
		r, err := http.NewRequest(http.MethodPut, ts.URL+"/dav/f", strings.NewReader(body))
		require.NoError(t, err)
		r.SetBasicAuth(testUser, testPass)
		rsp, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		defer rsp.Body.Close()
		return rsp.StatusCode
	}
	assert.Equal(t, webdav.StatusInsufficientStorage, put("hello"))
	assert.Equal(t, http.StatusCreated, put("hell"))
}

func TestSearchAnswered(t *testing.T) {
	ts := newTestServer(t)
	r, err := http.NewRequest(webdav.MethodSearch, ts.URL+"/dav/", nil)
	require.NoError(t, err)
	r.SetBasicAuth(testUser, testPass)
	rsp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, rsp.StatusCode)
}
