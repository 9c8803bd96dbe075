package webdav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// failureStatus converts err into a multi status entry for res.
func failureStatus(res IResource, err error) *Status {
	st := &Status{Href: hrefOf(res), StatusCode: StatusOf(err)}
	var ce *ConditionError
	if errors.As(err, &ce) {
		st.Error = ce
	}
	return st
}

// soleFailure turns a multi status holding a single failure on one of the
// request resources back into a plain error response.
func soleFailure(ms *MultiStatus, targets ...IResource) error {
	if ms.Len() != 1 {
		return nil
	}
	st := ms.Statuses()[0]
	for _, t := range targets {
		if st.Href != hrefOf(t) {
			continue
		}
		if st.Error != nil {
			return st.Error
		}
		return newError(st.StatusCode, StatusText(st.StatusCode))
	}
	return nil
}

func (rc *RequestContext) authorizeMember(ctx context.Context, res IResource, method string) error {
	u, err := url.Parse(res.GetCanonicalURL())
	if err != nil {
		return err
	}
	return rc.authorize(ctx, u, method)
}

// deleteTree removes res depth first. Members that cannot be removed are
// recorded in ms and keep their ancestors alive, siblings still go.
func (rc *RequestContext) deleteTree(ctx context.Context, res IResource, ms *MultiStatus) bool {
	ok := true
	if res.IsCollection() {
		members, err := res.GetInternalMembers(ctx, rc.User)
		if err != nil {
			ms.AddStatus(failureStatus(res, err))
			return false
		}
		for _, m := range members {
			if err := rc.authorizeMember(ctx, m, http.MethodDelete); err != nil {
				ms.AddStatus(failureStatus(m, err))
				ok = false
				continue
			}
			if err := rc.checkStructural(ctx, m); err != nil {
				ms.AddStatus(failureStatus(m, err))
				ok = false
				continue
			}
			if !rc.deleteTree(ctx, m, ms) {
				ok = false
			}
		}
	}
	if !ok {
		return false
	}
	if err := res.Delete(ctx, rc.User); err != nil {
		rc.Logger().Error("delete resource failed", zap.String("target", res.GetCanonicalPath()), zap.Error(err))
		ms.AddStatus(failureStatus(res, err))
		return false
	}
	return true
}

func (h *Handler) handleDelete(rc *RequestContext) error {
	ctx := rc.Context()
	res, err := rc.GetResource(ctx, rc.Path)
	if err != nil {
		return err
	}
	depth, err := parseDepth(rc.Request.Header.Get("Depth"), DepthInfinity, DepthInfinity)
	if err != nil {
		return err
	}
	args := &HookArgs{Resource: res, Depth: depth}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	if err := rc.rejectBody(); err != nil {
		return err
	}
	if rc.Path == "/" {
		return fmt.Errorf("delete root, %w", ErrForbidden)
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.checkStructural(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	ms := NewMultiStatus()
	if rc.deleteTree(ctx, res, ms) {
		rc.Response.WriteHeader(http.StatusNoContent)
		return nil
	}
	if err := soleFailure(ms, res); err != nil {
		return err
	}
	return writeMultiStatus(rc.Response, ms)
}
