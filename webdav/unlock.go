package webdav

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// removePlaceholder deletes the empty resource a provisional lock created,
// once no other lock holds it.
func (rc *RequestContext) removePlaceholder(ctx context.Context, res IResource) {
	size, err := res.GetLength(ctx)
	if err != nil || size != 0 || res.IsCollection() {
		return
	}
	if err := res.Delete(ctx, rc.User); err != nil {
		rc.Logger().Warn("remove lock placeholder failed", zap.Error(err))
	}
}

func (h *Handler) handleUnlock(rc *RequestContext) error {
	ctx := rc.Context()
	res, err := rc.GetResource(ctx, rc.Path)
	if err != nil {
		return err
	}
	token := strings.TrimSpace(rc.Request.Header.Get("Lock-Token"))
	token = strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	if len(token) == 0 {
		return fmt.Errorf("no lock token found, %w", ErrBadRequest)
	}
	args := &HookArgs{Resource: res}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	if err := rc.rejectBody(); err != nil {
		return err
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	var (
		found    *Lock
		released bool
	)
	err = rc.Adapter.Atomic(ctx, func(ctx context.Context) error {
		locks, err := rc.resourceLocks(ctx, res)
		if err != nil {
			return err
		}
		for _, l := range locks {
			if l.Token == token {
				found = l
				break
			}
		}
		if found == nil {
			return nil
		}
		if rc.User == nil || found.Username != rc.User.GetUsername() {
			return fmt.Errorf("lock owned by other user, %w", ErrForbidden)
		}
		root, err := rc.lockRoot(ctx, res, found)
		if err != nil {
			return err
		}
		if err := root.DeleteLock(ctx, token); err != nil {
			return fmt.Errorf("delete lock failed, err:%w", err)
		}
		released = true
		if !found.Provisional {
			return nil
		}
		remaining, err := root.GetLocks(ctx)
		if err != nil {
			return fmt.Errorf("read remaining locks failed, err:%w", err)
		}
		if len(remaining) == 0 {
			rc.removePlaceholder(ctx, root)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !released {
		// unknown tokens are reported in a multi status body, not as a bare 412
		ms := NewMultiStatus()
		ms.AddStatus(&Status{
			Href:       hrefOf(res),
			StatusCode: http.StatusPreconditionFailed,
			Error:      NewConditionError(ErrPreconditionFailed, "lock-token-matches-request-uri"),
		})
		return writeMultiStatus(rc.Response, ms)
	}
	rc.Response.WriteHeader(http.StatusNoContent)
	return nil
}
