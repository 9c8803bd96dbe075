package webdav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// checkParent fails with ErrResourceTreeNotComplete unless the parent of p
// is an existing collection.
func (rc *RequestContext) checkParent(ctx context.Context, p string) (IResource, error) {
	parent, err := rc.GetResource(ctx, ParentPath(p))
	if errors.Is(err, ErrResourceNotFound) {
		return nil, fmt.Errorf("parent not found, path:%s, %w", p, ErrResourceTreeNotComplete)
	}
	if err != nil {
		return nil, err
	}
	if !parent.IsCollection() {
		return nil, fmt.Errorf("parent is not collection, path:%s, %w", p, ErrResourceTreeNotComplete)
	}
	return parent, nil
}

// provisionalLocks returns the locks of res created on an unmapped URL.
func (rc *RequestContext) provisionalLocks(ctx context.Context, res IResource) ([]*Lock, error) {
	locks, err := res.GetLocks(ctx)
	if err != nil {
		return nil, err
	}
	rs := make([]*Lock, 0, len(locks))
	for _, l := range locks {
		if l.Provisional {
			rs = append(rs, l)
		}
	}
	return rs, nil
}

func (rc *RequestContext) confirmLocks(ctx context.Context, res IResource, locks []*Lock) error {
	for _, l := range locks {
		l.Provisional = false
		if err := res.SaveLock(ctx, l); err != nil {
			return fmt.Errorf("confirm lock failed, token:%s, err:%w", l.Token, err)
		}
	}
	return nil
}

func (h *Handler) handlePut(rc *RequestContext) error {
	ctx := rc.Context()
	res, exists, err := rc.lookupResource(ctx, rc.Path, false)
	if err != nil {
		return err
	}
	args := &HookArgs{Resource: res}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	if len(rc.Request.Header.Get("Content-Range")) != 0 {
		return fmt.Errorf("partial put is not supported, %w", ErrBadRequest)
	}
	if exists && res.IsCollection() {
		return fmt.Errorf("put on collection, %w", ErrMethodNotSupported)
	}
	if _, err := rc.checkParent(ctx, rc.Path); err != nil {
		return err
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	var provisional []*Lock
	if exists {
		if provisional, err = rc.provisionalLocks(ctx, res); err != nil {
			return err
		}
	}
	created := !exists || len(provisional) != 0
	if exists {
		err = rc.checkContent(ctx, res)
	} else {
		err = rc.checkStructural(ctx, res)
	}
	if err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	if !exists {
		if err := res.Create(ctx, rc.User); err != nil {
			return fmt.Errorf("create resource failed, err:%w", err)
		}
	}
	body := NewPipeline(ctx, rc.Request.Body, rc.requestTransforms...)
	mediaType := rc.Request.Header.Get("Content-Type")
	if err := res.SetStream(ctx, body, rc.User, mediaType); err != nil {
		_ = body.Close()
		return fmt.Errorf("write stream failed, err:%w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("close request stream failed, err:%w", err)
	}
	if err := rc.confirmLocks(ctx, res, provisional); err != nil {
		return err
	}
	if etag, err := res.GetEtag(ctx); err == nil && len(etag) != 0 {
		rc.Response.Header().Set("ETag", etag)
	}
	code := http.StatusNoContent
	if created {
		code = http.StatusCreated
		rc.Response.Header().Set("Location", res.GetCanonicalURL())
	}
	rc.Response.WriteHeader(code)
	if lang := strings.TrimSpace(rc.Request.Header.Get("Content-Language")); len(lang) != 0 {
		h.applyContentLanguage(rc, res, lang)
	}
	return nil
}

// applyContentLanguage is best effort, the response has already been sent.
func (h *Handler) applyContentLanguage(rc *RequestContext, res IResource, lang string) {
	ctx := rc.Context()
	props, err := res.GetProperties(ctx)
	if err != nil {
		rc.Logger().Warn("open properties failed", zap.Error(err))
		return
	}
	if err := props.SetByUser(ctx, PropContentLanguage, EscapeText(lang), rc.User); err != nil {
		rc.Logger().Warn("set content language failed", zap.String("lang", lang), zap.Error(err))
	}
}
