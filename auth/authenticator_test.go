package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/backend/memfs"
	"github.com/xxxsen/tgdav/webdav"
)

var testUsers = map[string]string{
	"abc": "123456",
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(testUsers)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("abc", "123456")
	u, err := a.Authenticate(ctx, r, httptest.NewRecorder())
	require.NoError(t, err)
	assert.Equal(t, "abc", u.GetUsername())
	assert.False(t, u.IsDefaultUser())

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("abc", "bad")
	_, err = a.Authenticate(ctx, r, httptest.NewRecorder())
	assert.ErrorIs(t, err, webdav.ErrUnauthorized)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("nobody", "123456")
	_, err = a.Authenticate(ctx, r, httptest.NewRecorder())
	assert.ErrorIs(t, err, webdav.ErrUnauthorized)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = a.Authenticate(ctx, r, httptest.NewRecorder())
	assert.ErrorIs(t, err, webdav.ErrUnauthorized)
}

func TestAnonymous(t *testing.T) {
	a := NewAuthenticator(testUsers, WithAnonymous(true))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	u, err := a.Authenticate(context.Background(), r, httptest.NewRecorder())
	require.NoError(t, err)
	assert.True(t, u.IsDefaultUser())

	r.SetBasicAuth("abc", "bad")
	_, err = a.Authenticate(context.Background(), r, httptest.NewRecorder())
	assert.ErrorIs(t, err, webdav.ErrUnauthorized)
}

func TestAuthList(t *testing.T) {
	names := make([]string, 0)
	for _, a := range AuthList() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{BasicAuthName}, names)
}

func TestHandlerChallenge(t *testing.T) {
	fs := memfs.New(memfs.WithBaseOptions(backend.WithAnonymousRead(true)))
	h, err := webdav.New(fs, webdav.WithAuthenticator(NewAuthenticator(testUsers, WithAnonymous(true))))
	require.NoError(t, err)

	r := httptest.NewRequest(webdav.MethodPropfind, "http://example.com/", nil)
	r.Header.Set("Depth", "0")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, webdav.StatusMulti, w.Code)

	r = httptest.NewRequest(webdav.MethodPropfind, "http://example.com/", nil)
	r.SetBasicAuth("abc", "bad")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="Restricted Area"`, w.Header().Get("WWW-Authenticate"))

	r = httptest.NewRequest(webdav.MethodMkcol, "http://example.com/x", nil)
	r.SetBasicAuth("abc", "123456")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusCreated, w.Code)
}
