package webdav

import (
	"bytes"
	"context"
	"net/http"

	"go.uber.org/zap"
)

var propStatOrder = []int{
	http.StatusOK,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
}

type propGroups struct {
	order  []int
	groups map[int]*PropStatStatus
}

func newPropGroups() *propGroups {
	return &propGroups{groups: make(map[int]*PropStatStatus)}
}

func (g *propGroups) add(code int, p *Property) {
	ps, ok := g.groups[code]
	if !ok {
		ps = &PropStatStatus{StatusCode: code}
		g.groups[code] = ps
		g.order = append(g.order, code)
	}
	ps.Props = append(ps.Props, p)
}

func (g *propGroups) apply(st *Status) {
	done := make(map[int]struct{}, len(g.order))
	for _, code := range propStatOrder {
		if ps, ok := g.groups[code]; ok {
			st.AddPropStat(ps)
			done[code] = struct{}{}
		}
	}
	for _, code := range g.order {
		if _, ok := done[code]; ok {
			continue
		}
		st.AddPropStat(g.groups[code])
	}
}

func appendMissing(names []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, n := range extra {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// resourceLocks lists the locks that apply to res, inherited ones included.
func (rc *RequestContext) resourceLocks(ctx context.Context, res IResource) ([]*Lock, error) {
	direct, inherited, err := rc.coveringLocks(ctx, res)
	if err != nil {
		return nil, err
	}
	return append(direct, inherited...), nil
}

func (rc *RequestContext) propValue(ctx context.Context, res IResource, props IProperties, name string) (string, error) {
	switch name {
	case PropLockDiscovery:
		locks, err := rc.resourceLocks(ctx, res)
		if err != nil {
			return "", err
		}
		return rc.lockDiscoveryValue(locks)
	case PropSupportedLock:
		return supportedLockValue()
	}
	return props.GetByUser(ctx, name, rc.User)
}

func (rc *RequestContext) propfindStatus(ctx context.Context, res IResource, req *propfindRequest) (*Status, error) {
	props, err := res.GetProperties(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	switch req.Kind {
	case propfindProp:
		names = req.Names
	default:
		if names, err = props.ListByUser(ctx, rc.User); err != nil {
			return nil, err
		}
		names = appendMissing(names, PropLockDiscovery, PropSupportedLock)
		if req.Kind == propfindAllProp {
			names = appendMissing(names, req.Names...)
		}
	}
	st := &Status{Href: hrefOf(res)}
	groups := newPropGroups()
	for _, name := range names {
		if req.Kind == propfindPropName {
			groups.add(http.StatusOK, &Property{Name: name})
			continue
		}
		v, err := rc.propValue(ctx, res, props, name)
		if err != nil {
			code := StatusOf(err)
			if code == http.StatusInternalServerError {
				rc.Logger().Error("read property failed", zap.String("prop", name), zap.Error(err))
			}
			groups.add(code, &Property{Name: name})
			continue
		}
		groups.add(http.StatusOK, &Property{Name: name, Value: v})
	}
	groups.apply(st)
	if len(st.PropStats) == 0 {
		st.StatusCode = http.StatusOK
	}
	return st, nil
}

func (rc *RequestContext) walkPropfind(ctx context.Context, res IResource, depth string, req *propfindRequest, ms *MultiStatus) error {
	st, err := rc.propfindStatus(ctx, res, req)
	if err != nil {
		return err
	}
	ms.AddStatus(st)
	if depth == DepthZero || !res.IsCollection() {
		return nil
	}
	members, err := res.GetInternalMembers(ctx, rc.User)
	if err != nil {
		return err
	}
	next := DepthZero
	if depth == DepthInfinity {
		next = DepthInfinity
	}
	for _, m := range members {
		if err := rc.authorizeMember(ctx, m, MethodPropfind); err != nil {
			ms.AddStatus(failureStatus(m, err))
			continue
		}
		if err := rc.walkPropfind(ctx, m, next, req, ms); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handlePropfind(rc *RequestContext) error {
	ctx := rc.Context()
	res, err := rc.GetResource(ctx, rc.Path)
	if err != nil {
		return err
	}
	depth, err := parseDepth(rc.Request.Header.Get("Depth"), DepthInfinity, DepthZero, DepthOne, DepthInfinity)
	if err != nil {
		return err
	}
	args := &HookArgs{Resource: res, Depth: depth}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	body, err := rc.readBody()
	if err != nil {
		return err
	}
	req, err := parsePropfind(bytes.NewReader(body))
	if err != nil {
		return newBadXMLError(err)
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	ms := NewMultiStatus()
	if err := rc.walkPropfind(ctx, res, depth, req, ms); err != nil {
		return err
	}
	return writeMultiStatus(rc.Response, ms)
}
