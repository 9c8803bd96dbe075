package webdav

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func trimWeak(etag string) string {
	return strings.TrimPrefix(strings.TrimSpace(etag), "W/")
}

func matchETagList(list string, etag string, exists bool, weak bool) bool {
	if !exists {
		return false
	}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "*" {
			return true
		}
		if len(item) == 0 || len(etag) == 0 {
			continue
		}
		if weak {
			if trimWeak(item) == trimWeak(etag) {
				return true
			}
			continue
		}
		if strings.HasPrefix(item, "W/") || strings.HasPrefix(etag, "W/") {
			continue
		}
		if item == etag {
			return true
		}
	}
	return false
}

type resourceState struct {
	exists  bool
	etag    string
	modTime time.Time
}

func loadResourceState(ctx context.Context, res IResource) (*resourceState, error) {
	exists, err := res.Exists(ctx)
	if err != nil {
		return nil, err
	}
	st := &resourceState{exists: exists}
	if !exists {
		return st, nil
	}
	if st.etag, err = res.GetEtag(ctx); err != nil {
		return nil, err
	}
	if st.modTime, err = res.GetLastModified(ctx); err != nil {
		return nil, err
	}
	st.modTime = st.modTime.Truncate(time.Second)
	return st, nil
}

// checkConditions evaluates the request preconditions against res. It must
// run before any lock check or mutation.
func (rc *RequestContext) checkConditions(ctx context.Context, res IResource) error {
	st, err := loadResourceState(ctx, res)
	if err != nil {
		return err
	}
	hdr := rc.Request.Header
	if v := hdr.Get("If-Match"); len(v) != 0 {
		if !matchETagList(v, st.etag, st.exists, false) {
			return ErrPreconditionFailed
		}
	} else if v := hdr.Get("If-Unmodified-Since"); len(v) != 0 && st.exists {
		if t, err := http.ParseTime(v); err == nil && st.modTime.After(t) {
			return ErrPreconditionFailed
		}
	}
	readOnly := rc.Method == http.MethodGet || rc.Method == http.MethodHead
	if v := hdr.Get("If-None-Match"); len(v) != 0 {
		if matchETagList(v, st.etag, st.exists, true) {
			if readOnly {
				return ErrResourceNotModified
			}
			return ErrPreconditionFailed
		}
	} else if v := hdr.Get("If-Modified-Since"); len(v) != 0 && readOnly && st.exists {
		if t, err := http.ParseTime(v); err == nil && !st.modTime.After(t) {
			return ErrResourceNotModified
		}
	}
	if rc.ifHeader == nil {
		return nil
	}
	ok, err := rc.evalIfHeader(ctx, res, st)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPreconditionFailed
	}
	return nil
}

// evalIfHeader holds when any evaluable list holds. Lists tagged with
// resources outside the mount are ignored.
func (rc *RequestContext) evalIfHeader(ctx context.Context, res IResource, st *resourceState) (bool, error) {
	evaluated := false
	for _, l := range rc.ifHeader.Lists {
		target := res
		tst := st
		if len(l.Resource) != 0 {
			u, err := url.Parse(l.Resource)
			if err != nil {
				continue
			}
			p, err := RelativePath(u, rc.BaseURL)
			if err != nil {
				continue
			}
			if p != res.GetCanonicalPath() {
				tres, _, err := rc.lookupResource(ctx, p, strings.HasSuffix(u.Path, "/"))
				if errors.Is(err, ErrBadGateway) {
					continue
				}
				if err != nil {
					return false, err
				}
				if tst, err = loadResourceState(ctx, tres); err != nil {
					return false, err
				}
				target = tres
			}
		}
		evaluated = true
		ok, err := rc.evalIfList(ctx, target, tst, l.Conditions)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return !evaluated, nil
}

func (rc *RequestContext) evalIfList(ctx context.Context, res IResource, st *resourceState, conds []ifCondition) (bool, error) {
	for _, c := range conds {
		var match bool
		if len(c.Token) != 0 {
			if c.Token != noLockToken {
				ok, err := rc.hasLockToken(ctx, res, c.Token)
				if err != nil {
					return false, err
				}
				match = ok
			}
		} else {
			match = st.exists && trimWeak(c.ETag) == trimWeak(st.etag)
		}
		if c.Not {
			match = !match
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}
