package webdav

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// parseRange parses a single "bytes=" range against size. Multiple ranges are
// answered with the whole body.
func parseRange(v string, size int64) (*Range, error) {
	if !strings.HasPrefix(v, "bytes=") {
		return nil, nil
	}
	rs := strings.TrimSpace(strings.TrimPrefix(v, "bytes="))
	if strings.Contains(rs, ",") {
		return nil, nil
	}
	idx := strings.Index(rs, "-")
	if idx < 0 {
		return nil, ErrRangeNotSatisfiable
	}
	startStr, endStr := strings.TrimSpace(rs[:idx]), strings.TrimSpace(rs[idx+1:])
	rng := &Range{}
	if len(startStr) == 0 {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrRangeNotSatisfiable
		}
		if n > size {
			n = size
		}
		rng.Start = size - n
		rng.End = size - 1
	} else {
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 || start >= size {
			return nil, ErrRangeNotSatisfiable
		}
		rng.Start = start
		rng.End = size - 1
		if len(endStr) != 0 {
			end, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || end < start {
				return nil, ErrRangeNotSatisfiable
			}
			if end < size {
				rng.End = end
			}
		}
	}
	if rng.End < rng.Start {
		return nil, ErrRangeNotSatisfiable
	}
	return rng, nil
}

func (rc *RequestContext) setEntityHeaders(res IResource) error {
	ctx := rc.Context()
	hdr := rc.Response.Header()
	etag, err := res.GetEtag(ctx)
	if err != nil {
		return err
	}
	if len(etag) != 0 {
		hdr.Set("ETag", etag)
	}
	mtime, err := res.GetLastModified(ctx)
	if err != nil {
		return err
	}
	if !mtime.IsZero() {
		hdr.Set("Last-Modified", mtime.UTC().Format(http.TimeFormat))
	}
	mediaType, err := res.GetMediaType(ctx)
	if err != nil {
		return err
	}
	if len(mediaType) != 0 {
		hdr.Set("Content-Type", mediaType)
	}
	return nil
}

func (h *Handler) handleGet(rc *RequestContext) error {
	return h.serveContent(rc, false)
}

func (h *Handler) handleHead(rc *RequestContext) error {
	return h.serveContent(rc, true)
}

func (h *Handler) serveContent(rc *RequestContext, headOnly bool) error {
	ctx := rc.Context()
	res, err := rc.GetResource(ctx, rc.Path)
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
	if res.IsCollection() && !headOnly {
		return fmt.Errorf("get on collection, %w", ErrMethodNotSupported)
	}
	// validators go out with a 304 as well
	if err := rc.setEntityHeaders(res); err != nil {
		return err
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	if res.IsCollection() {
		rc.Response.WriteHeader(http.StatusOK)
		return nil
	}
	size, err := res.GetLength(ctx)
	if err != nil {
		return err
	}
	hdr := rc.Response.Header()
	hdr.Set("Accept-Ranges", "bytes")
	var rng *Range
	if v := rc.Request.Header.Get("Range"); len(v) != 0 && size > 0 {
		if rng, err = parseRange(v, size); err != nil {
			hdr.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			return err
		}
	}
	code := http.StatusOK
	length := size
	if rng != nil {
		code = http.StatusPartialContent
		length = rng.Length()
		hdr.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	}
	if len(rc.responseTransforms) == 0 {
		hdr.Set("Content-Length", strconv.FormatInt(length, 10))
	}
	if headOnly {
		rc.Response.WriteHeader(code)
		return nil
	}
	stream, err := res.GetStream(ctx, rng)
	if err != nil {
		return err
	}
	out := NewPipeline(ctx, stream, rc.responseTransforms...)
	defer out.Close()
	rc.Response.WriteHeader(code)
	if _, err := io.Copy(rc.Response, out); err != nil {
		rc.Logger().Error("copy stream to client failed", zap.Error(err))
	}
	return nil
}
