package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/tgdav/config"
	"github.com/xxxsen/tgdav/db"
	"github.com/xxxsen/tgdav/webdav"
)

func doRequest(h http.Handler, method string, p string, body string, user bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "http://example.com"+p, strings.NewReader(body))
	if user {
		r.SetBasicAuth("abc", "123456")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"user_info":{"abc":"123456"}}`), 0644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0644))

	c, err := loadConfig([]string{"", bad, good})
	require.NoError(t, err)
	assert.Equal(t, "123456", c.UserInfo["abc"])

	_, err = loadConfig([]string{"", bad})
	assert.Error(t, err)
	_, err = loadConfig(nil)
	assert.Error(t, err)
}

func TestBuildMemApp(t *testing.T) {
	c := &config.Config{
		UserInfo:       map[string]string{"abc": "123456"},
		AllowAnonymous: true,
		Webdav:         config.WebdavConfig{Prefix: "/dav", Backend: config.BackendMem, OptionsCache: "no-cache"},
		Plugins: []config.PluginConfig{
			{Name: "readonly", Args: map[string]interface{}{"patterns": []string{"/ro/**"}}},
			{Name: "accesslog"},
		},
	}
	a, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, a.blob)
	assert.Equal(t, []string{"readonly", "accesslog"}, a.plugins)

	w := doRequest(a.handler, http.MethodOptions, "/dav/", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, http.StatusCreated, doRequest(a.handler, webdav.MethodMkcol, "/dav/docs", "", true).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(a.handler, webdav.MethodMkcol, "/dav/ro/x", "", true).Code)
	assert.Equal(t, http.StatusCreated, doRequest(a.handler, http.MethodPut, "/dav/docs/a.txt", "hello", true).Code)
	w = doRequest(a.handler, http.MethodGet, "/dav/docs/a.txt", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, doRequest(a.handler, http.MethodDelete, "/dav/docs/a.txt", "", false).Code)
}

func TestBuildUnknownPlugin(t *testing.T) {
	c := &config.Config{
		Webdav:  config.WebdavConfig{Prefix: "/", Backend: config.BackendMem},
		Plugins: []config.PluginConfig{{Name: "nope"}},
	}
	_, err := buildApp(context.Background(), c)
	assert.Error(t, err)
}

func TestBuildDBApp(t *testing.T) {
	dbfile := "/tmp/sqlite_tgdav_cmd_test.db"
	_ = os.RemoveAll(dbfile)
	t.Cleanup(func() {
		if cli := db.GetClient(); cli != nil {
			_ = cli.Close()
		}
		_ = os.RemoveAll(dbfile)
	})
	c := &config.Config{
		DBFile:   dbfile,
		UserInfo: map[string]string{"abc": "123456"},
		Webdav:   config.WebdavConfig{Prefix: "/", Backend: config.BackendDB, PropCacheSize: 32},
		Blob: config.BlobConfig{
			Kind:         "local",
			Args:         map[string]interface{}{"dir": t.TempDir(), "max_file_size": 1024},
			RotateStream: 5,
		},
		Plugins: []config.PluginConfig{{Name: "obfuscate", Args: map[string]interface{}{"rotate": 3}}},
	}
	a, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, a.blob)
	assert.Equal(t, int64(1024), a.maxUploadSize)

	assert.Equal(t, http.StatusCreated, doRequest(a.handler, webdav.MethodMkcol, "/docs", "", true).Code)
	assert.Equal(t, http.StatusCreated, doRequest(a.handler, http.MethodPut, "/docs/a.txt", "hello world", true).Code)
	w := doRequest(a.handler, http.MethodGet, "/docs/a.txt", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	w = doRequest(a.handler, webdav.MethodPropfind, "/docs/", "", true)
	assert.Equal(t, webdav.StatusMulti, w.Code)
	assert.Contains(t, w.Body.String(), "/docs/a.txt")
	assert.Equal(t, webdav.StatusInsufficientStorage, doRequest(a.handler, http.MethodPut, "/docs/big", strings.Repeat("x", 2048), true).Code)
}
