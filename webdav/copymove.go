package webdav

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

type transferRequest struct {
	src       IResource
	dst       IResource
	dstExists bool
	depth     string
	overwrite bool
}

func (rc *RequestContext) destinationPath() (string, *url.URL, error) {
	v := strings.TrimSpace(rc.Request.Header.Get("Destination"))
	if len(v) == 0 {
		return "", nil, fmt.Errorf("no destination found, %w", ErrBadRequest)
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", nil, fmt.Errorf("invalid destination:%s, %w", v, ErrBadRequest)
	}
	if len(u.Host) == 0 {
		u.Scheme = rc.BaseURL.Scheme
		u.Host = rc.BaseURL.Host
	}
	p, err := RelativePath(u, rc.BaseURL)
	if err != nil {
		return "", nil, err
	}
	return p, u, nil
}

func parseOverwrite(v string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "T":
		return true, nil
	case "F":
		return false, nil
	}
	return false, fmt.Errorf("invalid overwrite:%s, %w", v, ErrBadRequest)
}

// prepareTransfer runs the checks shared by COPY and MOVE up to the before hook.
func (rc *RequestContext) prepareTransfer(ctx context.Context, depthAllowed ...string) (*transferRequest, error) {
	dstPath, dstURL, err := rc.destinationPath()
	if err != nil {
		return nil, err
	}
	if err := rc.authorize(ctx, dstURL, rc.Method); err != nil {
		return nil, err
	}
	src, err := rc.GetResource(ctx, rc.Path)
	if err != nil {
		return nil, err
	}
	depth, err := parseDepth(rc.Request.Header.Get("Depth"), DepthInfinity, depthAllowed...)
	if err != nil {
		return nil, err
	}
	overwrite, err := parseOverwrite(rc.Request.Header.Get("Overwrite"))
	if err != nil {
		return nil, err
	}
	srcPath := src.GetCanonicalPath()
	if dstPath == srcPath {
		return nil, fmt.Errorf("destination equals source, %w", ErrForbidden)
	}
	if IsAncestorPath(srcPath, dstPath) || IsAncestorPath(dstPath, srcPath) {
		return nil, fmt.Errorf("destination overlaps source, dst:%s, %w", dstPath, ErrForbidden)
	}
	dst, exists, err := rc.lookupResource(ctx, dstPath, src.IsCollection())
	if err != nil {
		return nil, err
	}
	tr := &transferRequest{src: src, dst: dst, dstExists: exists, depth: depth, overwrite: overwrite}
	if err := rc.runHook(PhasePre, tr.hookArgs()); err != nil {
		return nil, err
	}
	if err := rc.rejectBody(); err != nil {
		return nil, err
	}
	if _, err := rc.checkParent(ctx, dstPath); err != nil {
		return nil, err
	}
	if err := rc.checkConditions(ctx, src); err != nil {
		return nil, err
	}
	if exists && !overwrite {
		return nil, fmt.Errorf("destination exists, %w", ErrPreconditionFailed)
	}
	if rc.Method == MethodMove {
		if err := rc.checkStructural(ctx, src); err != nil {
			return nil, err
		}
	}
	if err := rc.checkStructural(ctx, dst); err != nil {
		return nil, err
	}
	if err := rc.runHook(PhaseBefore, tr.hookArgs()); err != nil {
		return nil, err
	}
	return tr, nil
}

func (tr *transferRequest) hookArgs() *HookArgs {
	return &HookArgs{Resource: tr.src, Destination: tr.dst, Depth: tr.depth}
}

// clearDestination removes an existing destination, the returned resource
// is a fresh reference to the same path.
func (rc *RequestContext) clearDestination(ctx context.Context, tr *transferRequest, ms *MultiStatus) (bool, error) {
	if !tr.dstExists {
		return true, nil
	}
	if !rc.deleteTree(ctx, tr.dst, ms) {
		return false, nil
	}
	dst, _, err := rc.lookupResource(ctx, tr.dst.GetCanonicalPath(), tr.src.IsCollection())
	if err != nil {
		return false, err
	}
	tr.dst = dst
	return true, nil
}

func (rc *RequestContext) memberTarget(ctx context.Context, parent IResource, m IResource) (IResource, error) {
	p := path.Join(parent.GetCanonicalPath(), m.GetCanonicalName())
	dst, exists, err := rc.lookupResource(ctx, p, m.IsCollection())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("member target exists, path:%s, %w", p, ErrConflict)
	}
	return dst, nil
}

// authorizedTarget resolves the target of member m under parent, the user
// must be allowed the request method on both.
func (rc *RequestContext) authorizedTarget(ctx context.Context, parent IResource, m IResource) (IResource, error) {
	if err := rc.authorizeMember(ctx, m, rc.Method); err != nil {
		return nil, err
	}
	target, err := rc.memberTarget(ctx, parent, m)
	if err != nil {
		return nil, err
	}
	if err := rc.authorizeMember(ctx, target, rc.Method); err != nil {
		return nil, err
	}
	return target, nil
}

func (rc *RequestContext) copyTree(ctx context.Context, src IResource, dst IResource, depth string, ms *MultiStatus) bool {
	if err := src.Copy(ctx, dst, rc.User); err != nil {
		rc.Logger().Error("copy resource failed", zap.String("src", src.GetCanonicalPath()), zap.String("dst", dst.GetCanonicalPath()), zap.Error(err))
		ms.AddStatus(failureStatus(dst, err))
		return false
	}
	if !src.IsCollection() || depth != DepthInfinity {
		return true
	}
	members, err := src.GetInternalMembers(ctx, rc.User)
	if err != nil {
		ms.AddStatus(failureStatus(src, err))
		return false
	}
	ok := true
	for _, m := range members {
		target, err := rc.authorizedTarget(ctx, dst, m)
		if err != nil {
			ms.AddStatus(failureStatus(m, err))
			ok = false
			continue
		}
		if !rc.copyTree(ctx, m, target, depth, ms) {
			ok = false
		}
	}
	return ok
}

// moveTree renames plain resources and rebuilds collections at dst, the
// source collection is only removed once every member moved.
func (rc *RequestContext) moveTree(ctx context.Context, src IResource, dst IResource, ms *MultiStatus) bool {
	if !src.IsCollection() {
		if err := src.Move(ctx, dst, rc.User); err != nil {
			rc.Logger().Error("move resource failed", zap.String("src", src.GetCanonicalPath()), zap.String("dst", dst.GetCanonicalPath()), zap.Error(err))
			ms.AddStatus(failureStatus(src, err))
			return false
		}
		return true
	}
	if err := src.Copy(ctx, dst, rc.User); err != nil {
		ms.AddStatus(failureStatus(dst, err))
		return false
	}
	members, err := src.GetInternalMembers(ctx, rc.User)
	if err != nil {
		ms.AddStatus(failureStatus(src, err))
		return false
	}
	ok := true
	for _, m := range members {
		if err := rc.checkStructural(ctx, m); err != nil {
			ms.AddStatus(failureStatus(m, err))
			ok = false
			continue
		}
		target, err := rc.authorizedTarget(ctx, dst, m)
		if err != nil {
			ms.AddStatus(failureStatus(m, err))
			ok = false
			continue
		}
		if !rc.moveTree(ctx, m, target, ms) {
			ok = false
		}
	}
	if !ok {
		return false
	}
	if err := src.Delete(ctx, rc.User); err != nil {
		ms.AddStatus(failureStatus(src, err))
		return false
	}
	return true
}

func (rc *RequestContext) finishTransfer(tr *transferRequest, ms *MultiStatus) error {
	if ms.HasFailures() {
		if err := soleFailure(ms, tr.src, tr.dst); err != nil {
			return err
		}
		return writeMultiStatus(rc.Response, ms)
	}
	if tr.dstExists {
		rc.Response.WriteHeader(http.StatusNoContent)
		return nil
	}
	rc.Response.Header().Set("Location", tr.dst.GetCanonicalURL())
	rc.Response.WriteHeader(http.StatusCreated)
	return nil
}

func (h *Handler) handleCopy(rc *RequestContext) error {
	ctx := rc.Context()
	tr, err := rc.prepareTransfer(ctx, DepthZero, DepthInfinity)
	if err != nil {
		return err
	}
	ms := NewMultiStatus()
	ok, err := rc.clearDestination(ctx, tr, ms)
	if err != nil {
		return err
	}
	if ok {
		rc.copyTree(ctx, tr.src, tr.dst, tr.depth, ms)
	}
	return rc.finishTransfer(tr, ms)
}

func (h *Handler) handleMove(rc *RequestContext) error {
	ctx := rc.Context()
	tr, err := rc.prepareTransfer(ctx, DepthInfinity)
	if err != nil {
		return err
	}
	ms := NewMultiStatus()
	ok, err := rc.clearDestination(ctx, tr, ms)
	if err != nil {
		return err
	}
	if ok {
		rc.moveTree(ctx, tr.src, tr.dst, ms)
	}
	return rc.finishTransfer(tr, ms)
}
