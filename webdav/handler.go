package webdav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	MethodPropfind  = "PROPFIND"
	MethodProppatch = "PROPPATCH"
	MethodMkcol     = "MKCOL"
	MethodCopy      = "COPY"
	MethodMove      = "MOVE"
	MethodLock      = "LOCK"
	MethodUnlock    = "UNLOCK"
	MethodSearch    = "SEARCH"

	maxXMLBodySize = 1024 * 1024
)

var baselineComplianceClasses = []string{"1", "3"}

var baselineMethods = []string{
	http.MethodOptions,
	http.MethodGet,
	http.MethodHead,
	http.MethodPut,
	http.MethodDelete,
	MethodPropfind,
	MethodProppatch,
	MethodMkcol,
	MethodCopy,
	MethodMove,
	MethodLock,
	MethodUnlock,
}

// BaselineMethods lists the verbs answered by the handler itself.
func BaselineMethods() []string {
	rs := make([]string, len(baselineMethods))
	copy(rs, baselineMethods)
	return rs
}

// IChallenger is implemented by authenticators that advertise a scheme on 401.
type IChallenger interface {
	Challenge(w http.ResponseWriter)
}

type defaultUser struct{}

func (defaultUser) GetUsername() string {
	return ""
}

func (defaultUser) IsDefaultUser() bool {
	return true
}

type anonymousAuthenticator struct{}

func (anonymousAuthenticator) Authenticate(ctx context.Context, r *http.Request, w http.ResponseWriter) (IUser, error) {
	return defaultUser{}, nil
}

func (anonymousAuthenticator) CleanAuthentication(ctx context.Context, r *http.Request, user IUser) error {
	return nil
}

// Handler serves the WebDAV protocol on top of an adapter.
type Handler struct {
	c       *config
	adapter IAdapter
	hooks   *HookChain
	methods map[string]MethodFunc
}

func New(adapter IAdapter, opts ...Option) (*Handler, error) {
	if adapter == nil {
		return nil, fmt.Errorf("no adapter found")
	}
	c := applyOpts(opts...)
	if c.auth == nil {
		c.auth = anonymousAuthenticator{}
	}
	h := &Handler{
		c:       c,
		adapter: adapter,
		hooks:   NewHookChain(),
	}
	h.methods = map[string]MethodFunc{
		http.MethodOptions: h.handleOptions,
		http.MethodGet:     h.handleGet,
		http.MethodHead:    h.handleHead,
		http.MethodPut:     h.handlePut,
		http.MethodDelete:  h.handleDelete,
		MethodPropfind:     h.handlePropfind,
		MethodProppatch:    h.handleProppatch,
		MethodMkcol:        h.handleMkcol,
		MethodCopy:         h.handleCopy,
		MethodMove:         h.handleMove,
		MethodLock:         h.handleLock,
		MethodUnlock:       h.handleUnlock,
	}
	for _, p := range c.plugins {
		if err := p.Init(h.hooks); err != nil {
			return nil, fmt.Errorf("init plugin failed, name:%s, err:%w", p.Name(), err)
		}
	}
	return h, nil
}

// Hooks exposes the chain so callers can register hooks outside of plugins.
func (h *Handler) Hooks() *HookChain {
	return h.hooks
}

func (h *Handler) baseURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if v := r.Header.Get("X-Forwarded-Proto"); len(v) != 0 {
		scheme = v
	}
	p := CleanPath(h.c.prefix)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: p}
}

func (h *Handler) newRequestContext(w http.ResponseWriter, r *http.Request) *RequestContext {
	base := h.baseURL(r)
	u := *r.URL
	u.Scheme = base.Scheme
	u.Host = base.Host
	return &RequestContext{
		Request:  r,
		Response: newResponseWriter(w),
		Adapter:  h.adapter,
		BaseURL:  base,
		URL:      &u,
		Method:   r.Method,
		Locals:   make(map[string]interface{}),
		h:        h,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := h.newRequestContext(w, r)
	dispatched, err := h.serve(rc)
	if err != nil && !errors.Is(err, ErrRequestHandled) {
		h.writeError(rc, err)
	}
	if dispatched && !errors.Is(err, ErrRequestHandled) {
		if herr := rc.runHook(PhaseAfter, &HookArgs{Err: err}); herr != nil && !errors.Is(herr, ErrRequestHandled) {
			rc.Logger().Error("run after hook failed", zap.Error(herr))
		}
	}
	h.finish(rc)
}

func (h *Handler) serve(rc *RequestContext) (bool, error) {
	ctx := rc.Context()
	if err := rc.runHook(PhasePrepare, nil); err != nil {
		return false, err
	}
	p, err := RelativePath(rc.URL, rc.BaseURL)
	if err != nil {
		return false, err
	}
	rc.Path = p
	if err := rc.runHook(PhaseBeforeAuth, nil); err != nil {
		return false, err
	}
	user, err := h.c.auth.Authenticate(ctx, rc.Request, rc.Response)
	if err != nil {
		return false, err
	}
	rc.User = user
	if err := rc.runHook(PhaseAfterAuth, nil); err != nil {
		return false, err
	}
	if err := rc.runHook(PhaseBegin, nil); err != nil {
		return true, err
	}
	if err := rc.authorize(ctx, rc.URL, rc.Method); err != nil {
		return true, err
	}
	var m IMethod
	if fn, ok := h.methods[rc.Method]; ok {
		m = fn
	} else if m, err = rc.Adapter.GetMethod(ctx, rc.Method); err != nil {
		return true, err
	}
	if v := rc.Request.Header.Get("If"); len(v) != 0 {
		ih, err := parseIfHeader(v)
		if err != nil {
			return true, fmt.Errorf("parse if header failed, err:%v, %w", err, ErrBadRequest)
		}
		rc.ifHeader = ih
	}
	return true, m.Run(rc)
}

func (h *Handler) finish(rc *RequestContext) {
	if err := rc.runHook(PhaseClose, nil); err != nil && !errors.Is(err, ErrRequestHandled) {
		rc.Logger().Error("run close hook failed", zap.Error(err))
	}
	if rc.User == nil {
		return
	}
	if err := h.c.auth.CleanAuthentication(rc.Context(), rc.Request, rc.User); err != nil {
		rc.Logger().Error("clean authentication failed", zap.Error(err))
	}
}

func (h *Handler) writeError(rc *RequestContext, err error) {
	logger := rc.Logger()
	if rc.Response.Written() {
		logger.Error("request failed after response started", zap.Error(err))
		return
	}
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		logger.Error("handle request failed", zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("code", code), zap.Error(err))
	}
	if code == http.StatusUnauthorized {
		if c, ok := h.c.auth.(IChallenger); ok {
			c.Challenge(rc.Response)
		}
	}
	var ce *ConditionError
	if errors.As(err, &ce) {
		x := ce.toXML()
		x.XMLNS = davNamespace
		if werr := writeXML(rc.Response, code, x); werr != nil {
			logger.Error("write error body failed", zap.Error(werr))
		}
		return
	}
	if code == http.StatusNotModified {
		rc.Response.WriteHeader(code)
		return
	}
	http.Error(rc.Response, StatusText(code), code)
}

// rejectBody fails with ErrMediaTypeNotSupported when a bodyless verb carries content.
func (rc *RequestContext) rejectBody() error {
	r := rc.Request
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	buf := make([]byte, 1)
	n, _ := io.ReadFull(r.Body, buf)
	if n > 0 {
		return ErrMediaTypeNotSupported
	}
	return nil
}

// readBody returns the request body, nil when there is none.
func (rc *RequestContext) readBody() ([]byte, error) {
	r := rc.Request
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxXMLBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxXMLBodySize {
		return nil, fmt.Errorf("body too large, %w", ErrBadRequest)
	}
	return raw, nil
}

func parseDepth(v string, def string, allowed ...string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if len(v) == 0 {
		return def, nil
	}
	for _, item := range allowed {
		if v == item {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid depth:%s, %w", v, ErrBadRequest)
}
