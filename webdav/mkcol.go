package webdav

import (
	"context"
	"fmt"
	"net/http"
)

// replacePlaceholder turns the empty resource created by LOCK on an unmapped
// URL into a collection, keeping its locks.
func (rc *RequestContext) replacePlaceholder(ctx context.Context, res IResource, locks []*Lock) (IResource, error) {
	if err := res.Delete(ctx, rc.User); err != nil {
		return nil, fmt.Errorf("delete placeholder failed, err:%w", err)
	}
	col, err := rc.Adapter.NewCollection(ctx, rc.ResolveURL(rc.Path, true), rc.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := col.Create(ctx, rc.User); err != nil {
		return nil, fmt.Errorf("create collection failed, err:%w", err)
	}
	if err := rc.confirmLocks(ctx, col, locks); err != nil {
		return nil, err
	}
	return col, nil
}

func (h *Handler) handleMkcol(rc *RequestContext) error {
	ctx := rc.Context()
	res, exists, err := rc.lookupResource(ctx, rc.Path, true)
	if err != nil {
		return err
	}
	args := &HookArgs{Resource: res}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	if err := rc.rejectBody(); err != nil {
		return err
	}
	var placeholder []*Lock
	if exists {
		if res.IsCollection() {
			return fmt.Errorf("collection exists, %w", ErrResourceExists)
		}
		if placeholder, err = rc.provisionalLocks(ctx, res); err != nil {
			return err
		}
		if len(placeholder) == 0 {
			return fmt.Errorf("resource exists, %w", ErrResourceExists)
		}
	}
	if _, err := rc.checkParent(ctx, rc.Path); err != nil {
		return err
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
	if len(placeholder) != 0 {
		if res, err = rc.replacePlaceholder(ctx, res, placeholder); err != nil {
			return err
		}
	} else if err := res.Create(ctx, rc.User); err != nil {
		return fmt.Errorf("create collection failed, err:%w", err)
	}
	rc.Response.Header().Set("Location", res.GetCanonicalURL())
	rc.Response.WriteHeader(http.StatusCreated)
	return nil
}
