package webdav

import (
	"net/http"
	"strings"
)

func mergeUnique(base []string, extra []string) []string {
	rs := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, items := range [][]string{base, extra} {
		for _, item := range items {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			rs = append(rs, item)
		}
	}
	return rs
}

func (h *Handler) handleOptions(rc *RequestContext) error {
	ctx := rc.Context()
	if err := rc.runHook(PhasePre, nil); err != nil {
		return err
	}
	if err := rc.rejectBody(); err != nil {
		return err
	}
	classes, err := rc.Adapter.GetComplianceClasses(ctx, rc.URL)
	if err != nil {
		return err
	}
	methods, err := rc.Adapter.GetAllowedMethods(ctx, rc.URL)
	if err != nil {
		return err
	}
	cacheControl, err := rc.Adapter.GetOptionsResponseCacheControl(ctx, rc.URL)
	if err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, nil); err != nil {
		return err
	}
	hdr := rc.Response.Header()
	hdr.Set("DAV", strings.Join(mergeUnique(baselineComplianceClasses, classes), ", "))
	hdr.Set("Allow", strings.Join(mergeUnique(baselineMethods, methods), ", "))
	if len(cacheControl) != 0 {
		hdr.Set("Cache-Control", cacheControl)
	}
	hdr.Set("Content-Length", "0")
	rc.Response.WriteHeader(http.StatusOK)
	return nil
}
