package backend

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/xxxsen/tgdav/webdav"
)

const (
	defaultOptionsCacheControl = "max-age=604800"
)

var readMethods = map[string]struct{}{
	http.MethodOptions:    {},
	http.MethodGet:        {},
	http.MethodHead:       {},
	webdav.MethodPropfind: {},
}

// IsReadMethod reports whether method never changes server state.
func IsReadMethod(method string) bool {
	_, ok := readMethods[method]
	return ok
}

type baseConfig struct {
	anonymousRead bool
	cacheControl  string
}

type BaseOption func(c *baseConfig)

// WithAnonymousRead lets the default user run the read only verbs.
func WithAnonymousRead(v bool) BaseOption {
	return func(c *baseConfig) {
		c.anonymousRead = v
	}
}

func WithOptionsCacheControl(v string) BaseOption {
	return func(c *baseConfig) {
		c.cacheControl = v
	}
}

// Base implements the adapter parts shared by every storage backend: the
// extra compliance classes, the authorization policy, the extension verb
// lookup and the lock table critical section.
type Base struct {
	c  *baseConfig
	mu sync.Mutex
}

func NewBase(opts ...BaseOption) *Base {
	c := &baseConfig{cacheControl: defaultOptionsCacheControl}
	for _, opt := range opts {
		opt(c)
	}
	return &Base{c: c}
}

func (b *Base) GetComplianceClasses(ctx context.Context, u *url.URL) ([]string, error) {
	return []string{"2"}, nil
}

func (b *Base) GetAllowedMethods(ctx context.Context, u *url.URL) ([]string, error) {
	return nil, nil
}

func (b *Base) GetOptionsResponseCacheControl(ctx context.Context, u *url.URL) (string, error) {
	return b.c.cacheControl, nil
}

func (b *Base) IsAuthorized(ctx context.Context, u *url.URL, method string, user webdav.IUser) (bool, error) {
	if user != nil && !user.IsDefaultUser() {
		return true, nil
	}
	return b.c.anonymousRead && IsReadMethod(method), nil
}

func (b *Base) GetMethod(ctx context.Context, method string) (webdav.IMethod, error) {
	if method == webdav.MethodSearch {
		return nil, webdav.ErrMethodNotSupported
	}
	return nil, webdav.ErrMethodNotImplemented
}

func (b *Base) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(ctx)
}
