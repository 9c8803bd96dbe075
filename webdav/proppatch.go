package webdav

import (
	"bytes"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

func (h *Handler) handleProppatch(rc *RequestContext) error {
	ctx := rc.Context()
	res, err := rc.GetResource(ctx, rc.Path)
	if err != nil {
		return err
	}
	args := &HookArgs{Resource: res}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	body, err := rc.readBody()
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("empty proppatch body, %w", ErrBadRequest)
	}
	ins, err := parsePropertyUpdate(bytes.NewReader(body))
	if err != nil {
		return newBadXMLError(err)
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.checkContent(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	props, err := res.GetProperties(ctx)
	if err != nil {
		return err
	}
	perrs, err := props.RunInstructionsByUser(ctx, ins, rc.User)
	if err != nil {
		return fmt.Errorf("run prop instructions failed, err:%w", err)
	}
	failed := make(map[string]int, len(perrs))
	for _, pe := range perrs {
		code := StatusOf(pe.Err)
		if code == http.StatusInternalServerError {
			rc.Logger().Error("apply property failed", zap.String("prop", pe.Name), zap.Error(pe.Err))
		}
		failed[pe.Name] = code
	}
	st := &Status{Href: hrefOf(res)}
	groups := newPropGroups()
	seen := make(map[string]struct{}, len(ins))
	for _, item := range ins {
		if _, ok := seen[item.Name]; ok {
			continue
		}
		seen[item.Name] = struct{}{}
		code := http.StatusOK
		if len(failed) != 0 {
			code = StatusFailedDependency
			if c, ok := failed[item.Name]; ok {
				code = c
			}
		}
		groups.add(code, &Property{Name: item.Name})
	}
	groups.apply(st)
	ms := NewMultiStatus()
	ms.AddStatus(st)
	return writeMultiStatus(rc.Response, ms)
}
