package webdav

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ResponseWriter records whether a response has been started.
type ResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
	size    int64
}

func newResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

func (w *ResponseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(p []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *ResponseWriter) Written() bool {
	return w.written
}

func (w *ResponseWriter) Status() int {
	return w.status
}

func (w *ResponseWriter) Size() int64 {
	return w.size
}

// RequestContext carries the per request state shared by the dispatcher,
// the method handlers and the hooks.
type RequestContext struct {
	Request  *http.Request
	Response *ResponseWriter
	// Adapter may be replaced by hooks, later phases see the new value.
	Adapter IAdapter
	User    IUser
	BaseURL *url.URL
	URL     *url.URL
	Path    string
	Method  string
	Locals  map[string]interface{}

	h                  *Handler
	ifHeader           *ifHeader
	requestTransforms  []StreamTransform
	responseTransforms []StreamTransform
}

func (rc *RequestContext) Context() context.Context {
	return rc.Request.Context()
}

func (rc *RequestContext) Logger() *zap.Logger {
	return logutil.GetLogger(rc.Context()).With(zap.String("method", rc.Method), zap.String("path", rc.Path))
}

// SubmittedTokens lists the lock tokens asserted through the If header.
func (rc *RequestContext) SubmittedTokens() []string {
	return rc.ifHeader.Tokens()
}

func (rc *RequestContext) AddRequestTransform(t StreamTransform) {
	rc.requestTransforms = append(rc.requestTransforms, t)
}

func (rc *RequestContext) AddResponseTransform(t StreamTransform) {
	rc.responseTransforms = append(rc.responseTransforms, t)
}

func (rc *RequestContext) ResolveURL(p string, collection bool) *url.URL {
	return JoinURL(rc.BaseURL, p, collection)
}

func (rc *RequestContext) GetResource(ctx context.Context, p string) (IResource, error) {
	return rc.Adapter.GetResource(ctx, rc.ResolveURL(p, false), rc.BaseURL)
}

// lookupResource returns the resource at p, or an unsaved reference when
// nothing exists there yet.
func (rc *RequestContext) lookupResource(ctx context.Context, p string, collection bool) (IResource, bool, error) {
	res, err := rc.GetResource(ctx, p)
	if err == nil {
		return res, true, nil
	}
	if !errors.Is(err, ErrResourceNotFound) {
		return nil, false, err
	}
	if collection {
		res, err = rc.Adapter.NewCollection(ctx, rc.ResolveURL(p, true), rc.BaseURL)
	} else {
		res, err = rc.Adapter.NewResource(ctx, rc.ResolveURL(p, false), rc.BaseURL)
	}
	if err != nil {
		return nil, false, err
	}
	return res, false, nil
}

func (rc *RequestContext) authorize(ctx context.Context, u *url.URL, method string) error {
	ok, err := rc.Adapter.IsAuthorized(ctx, u, method, rc.User)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if rc.User == nil || rc.User.IsDefaultUser() {
		return ErrUnauthorized
	}
	return ErrForbidden
}

func (rc *RequestContext) runHook(phase Phase, args *HookArgs) error {
	if args == nil {
		args = &HookArgs{}
	}
	args.Phase = phase
	args.Method = rc.Method
	return rc.h.hooks.Run(rc, args)
}
