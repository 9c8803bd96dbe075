package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
)

// User is an identity resolved from the request credentials.
type User struct {
	Name     string
	AuthType string
}

func (u *User) GetUsername() string {
	return u.Name
}

func (u *User) IsDefaultUser() bool {
	return len(u.Name) == 0
}

var anonymous = &User{}

type config struct {
	allowAnonymous bool
	ats            []IAuth
}

type Option func(c *config)

// WithAnonymous resolves requests without credentials to the default user
// instead of failing them.
func WithAnonymous(v bool) Option {
	return func(c *config) {
		c.allowAnonymous = v
	}
}

func WithAuths(ats ...IAuth) Option {
	return func(c *config) {
		c.ats = ats
	}
}

// Authenticator resolves webdav users from the registered credential schemes.
type Authenticator struct {
	c       *config
	matchfn UserQueryFunc
}

func NewAuthenticator(users map[string]string, opts ...Option) *Authenticator {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.ats) == 0 {
		c.ats = AuthList()
	}
	return &Authenticator{c: c, matchfn: MapUserMatch(users)}
}

func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request, w http.ResponseWriter) (webdav.IUser, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("method", r.Method), zap.String("path", r.URL.Path))
	for _, fn := range a.c.ats {
		if !fn.IsMatchAuthType(r) {
			continue
		}
		ak, err := fn.Auth(r, a.matchfn)
		if err != nil {
			logger.Debug("user auth failed", zap.String("auth", fn.Name()), zap.Error(err))
			return nil, fmt.Errorf("auth:%s, err:%v, %w", fn.Name(), err, webdav.ErrUnauthorized)
		}
		logger.Debug("user auth succ", zap.String("auth", fn.Name()), zap.String("ak", ak))
		return &User{Name: ak, AuthType: fn.Name()}, nil
	}
	if a.c.allowAnonymous {
		return anonymous, nil
	}
	return nil, fmt.Errorf("no credentials found, %w", webdav.ErrUnauthorized)
}

func (a *Authenticator) CleanAuthentication(ctx context.Context, r *http.Request, user webdav.IUser) error {
	return nil
}

func (a *Authenticator) Challenge(w http.ResponseWriter) {
	for _, fn := range a.c.ats {
		w.Header().Add("WWW-Authenticate", fn.Challenge())
	}
}
