package webdav

import (
	"net/url"
	"path"
	"strings"
)

// CleanPath normalises p into a rooted path without a trailing slash.
func CleanPath(p string) string {
	if len(p) == 0 {
		return "/"
	}
	return path.Clean("/" + p)
}

func ParentPath(p string) string {
	p = CleanPath(p)
	if p == "/" {
		return "/"
	}
	return path.Dir(p)
}

// IsAncestorPath reports whether anc strictly contains p.
func IsAncestorPath(anc string, p string) bool {
	anc = CleanPath(anc)
	p = CleanPath(p)
	if anc == p {
		return false
	}
	if anc == "/" {
		return true
	}
	return strings.HasPrefix(p, anc+"/")
}

// AncestorPaths lists the ancestors of p, nearest first, root last.
func AncestorPaths(p string) []string {
	p = CleanPath(p)
	rs := make([]string, 0, 8)
	for p != "/" {
		p = path.Dir(p)
		rs = append(rs, p)
	}
	return rs
}

// RelativePath returns the clean path of u below base, failing with
// ErrBadGateway when u points outside of it.
func RelativePath(u *url.URL, base *url.URL) (string, error) {
	if len(u.Host) != 0 && len(base.Host) != 0 && !strings.EqualFold(u.Host, base.Host) {
		return "", ErrBadGateway
	}
	p := CleanPath(u.Path)
	bp := strings.TrimSuffix(CleanPath(base.Path), "/")
	if len(bp) == 0 {
		return p, nil
	}
	if p != bp && !strings.HasPrefix(p, bp+"/") {
		return "", ErrBadGateway
	}
	return CleanPath(strings.TrimPrefix(p, bp)), nil
}

// JoinURL builds the URL of relative path p under base.
func JoinURL(base *url.URL, p string, collection bool) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + CleanPath(p)
	if collection && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return &u
}

func hrefOf(res IResource) string {
	u, err := url.Parse(res.GetCanonicalURL())
	if err != nil {
		return res.GetCanonicalURL()
	}
	return u.EscapedPath()
}
