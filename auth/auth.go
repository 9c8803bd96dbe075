package auth

import (
	"context"
	"net/http"
	"sort"
)

type UserQueryFunc func(ctx context.Context, ak string) (string, bool, error)

func MapUserMatch(ud map[string]string) UserQueryFunc {
	return func(ctx context.Context, ak string) (string, bool, error) {
		usk, ok := ud[ak]
		if !ok {
			return "", false, nil
		}
		return usk, true, nil
	}
}

// IAuth checks one credential scheme carried by the request.
type IAuth interface {
	Name() string
	// IsMatchAuthType reports whether r carries credentials of this scheme.
	IsMatchAuthType(r *http.Request) bool
	Auth(r *http.Request, userdata UserQueryFunc) (string, error)
	// Challenge is the WWW-Authenticate value sent back on 401.
	Challenge() string
}

var mp = make(map[string]IAuth)

func register(fn IAuth) {
	mp[fn.Name()] = fn
}

// AuthList returns the registered schemes ordered by name.
func AuthList() []IAuth {
	rs := make([]IAuth, 0, len(mp))
	for _, v := range mp {
		rs = append(rs, v)
	}
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].Name() < rs[j].Name()
	})
	return rs
}
