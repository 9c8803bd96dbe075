package accesslog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/tgdav/auth"
	"github.com/xxxsen/tgdav/backend/memfs"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	p := New(func(rc *webdav.RequestContext) *zap.Logger {
		return logger
	})
	h, err := webdav.New(memfs.New(),
		webdav.WithAuthenticator(auth.NewAuthenticator(map[string]string{"abc": "123456"})),
		webdav.WithPlugins(p),
	)
	require.NoError(t, err)

	r := httptest.NewRequest(webdav.MethodMkcol, "http://example.com/a", nil)
	r.SetBasicAuth("abc", "123456")
	h.ServeHTTP(httptest.NewRecorder(), r)

	r = httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("access").All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, webdav.MethodMkcol, first["method"])
	assert.Equal(t, "/a", first["path"])
	assert.Equal(t, "abc", first["user"])
	assert.Equal(t, int64(http.StatusCreated), first["status"])
	second := entries[1].ContextMap()
	assert.Equal(t, int64(http.StatusUnauthorized), second["status"])
	assert.Equal(t, "", second["user"])
}
