package webdav

import (
	"fmt"
)

type Phase string

const (
	PhasePrepare    Phase = "prepare"
	PhaseBeforeAuth Phase = "beforeAuth"
	PhaseAfterAuth  Phase = "afterAuth"
	PhaseBegin      Phase = "begin"
	PhasePre        Phase = "pre"
	PhaseBefore     Phase = "before"
	PhaseAfter      Phase = "after"
	PhaseClose      Phase = "close"
)

// HookArgs is the phase specific context handed to hooks.
type HookArgs struct {
	Phase       Phase
	Method      string
	Resource    IResource
	Destination IResource
	Depth       string
	Err         error
}

// HookFunc intercepts a phase. Returning ErrRequestHandled, or writing the
// response, ends the request.
type HookFunc func(rc *RequestContext, args *HookArgs) error

type IPlugin interface {
	Name() string
	Init(chain *HookChain) error
}

type hook struct {
	plugin string
	phase  Phase
	method string
	fn     HookFunc
}

type HookChain struct {
	hooks []*hook
}

func NewHookChain() *HookChain {
	return &HookChain{}
}

// Register adds fn for phase. An empty method matches every verb.
func (c *HookChain) Register(plugin string, phase Phase, method string, fn HookFunc) {
	c.hooks = append(c.hooks, &hook{plugin: plugin, phase: phase, method: method, fn: fn})
}

func (c *HookChain) Len() int {
	return len(c.hooks)
}

// Run calls the hooks matching args in registration order.
func (c *HookChain) Run(rc *RequestContext, args *HookArgs) error {
	for _, h := range c.hooks {
		if h.phase != args.Phase {
			continue
		}
		if len(h.method) != 0 && h.method != args.Method {
			continue
		}
		if err := h.fn(rc, args); err != nil {
			if err == ErrRequestHandled {
				return err
			}
			return fmt.Errorf("plugin:%s, phase:%s, err:%w", h.plugin, h.phase, err)
		}
		if rc.Response.Written() {
			return ErrRequestHandled
		}
	}
	return nil
}
