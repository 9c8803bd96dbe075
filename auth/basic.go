package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

const (
	BasicAuthName = "basic"

	defaultRealm = "Restricted Area"
)

func init() {
	register(&basicAuth{})
}

type basicAuth struct {
}

func (b *basicAuth) Name() string {
	return BasicAuthName
}

func (b *basicAuth) IsMatchAuthType(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Basic")
}

func (b *basicAuth) Challenge() string {
	return fmt.Sprintf(`Basic realm="%s"`, defaultRealm)
}

func (b *basicAuth) Auth(r *http.Request, fn UserQueryFunc) (string, error) {
	uak, usk, ok := r.BasicAuth()
	if !ok {
		return "", fmt.Errorf("no auth found")
	}

	sk, ok, err := fn(r.Context(), uak)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("user not found, u:%s", uak)
	}
	if subtle.ConstantTimeCompare([]byte(sk), []byte(usk)) != 1 {
		return "", fmt.Errorf("sk not match, u:%s", uak)
	}
	return uak, nil
}
