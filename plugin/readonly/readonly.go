package readonly

import (
	"fmt"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/tgdav/plugin"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	Name = "readonly"
)

var writeMethods = map[string]struct{}{
	http.MethodPut:         {},
	http.MethodDelete:      {},
	webdav.MethodMkcol:     {},
	webdav.MethodMove:      {},
	webdav.MethodProppatch: {},
	webdav.MethodLock:      {},
	webdav.MethodUnlock:    {},
}

type config struct {
	Patterns []string `json:"patterns"`
}

type readonlyPlugin struct {
	patterns []string
}

// New rejects every mutation below the paths matching patterns, an empty
// list covers the whole tree.
func New(patterns ...string) (webdav.IPlugin, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern:%s", p)
		}
	}
	return &readonlyPlugin{patterns: patterns}, nil
}

func (p *readonlyPlugin) Name() string {
	return Name
}

func (p *readonlyPlugin) isReadonly(path string) bool {
	if len(p.patterns) == 0 {
		return true
	}
	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func (p *readonlyPlugin) Init(chain *webdav.HookChain) error {
	chain.Register(Name, webdav.PhaseBegin, "", func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
		if _, ok := writeMethods[rc.Method]; !ok {
			return nil
		}
		if p.isReadonly(rc.Path) {
			return fmt.Errorf("path:%s is readonly, %w", rc.Path, webdav.ErrForbidden)
		}
		return nil
	})
	// COPY leaves its source untouched, only the target counts.
	for _, method := range []string{webdav.MethodCopy, webdav.MethodMove} {
		chain.Register(Name, webdav.PhasePre, method, func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
			if args.Destination == nil {
				return nil
			}
			if dst := args.Destination.GetCanonicalPath(); p.isReadonly(dst) {
				return fmt.Errorf("destination:%s is readonly, %w", dst, webdav.ErrForbidden)
			}
			return nil
		})
	}
	return nil
}

func create(args interface{}) (webdav.IPlugin, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(c.Patterns...)
}

func init() {
	plugin.Register(Name, create)
}
