package accesslog

import (
	"time"

	"github.com/xxxsen/tgdav/plugin"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
)

const (
	Name = "accesslog"

	startTimeKey = "accesslog.start"
)

type accessLogPlugin struct {
	logger func(rc *webdav.RequestContext) *zap.Logger
}

// New logs one line per request once it is closed. A nil fn logs through
// the request logger.
func New(fn func(rc *webdav.RequestContext) *zap.Logger) webdav.IPlugin {
	if fn == nil {
		fn = func(rc *webdav.RequestContext) *zap.Logger {
			return rc.Logger()
		}
	}
	return &accessLogPlugin{logger: fn}
}

func (p *accessLogPlugin) Name() string {
	return Name
}

func (p *accessLogPlugin) Init(chain *webdav.HookChain) error {
	chain.Register(Name, webdav.PhasePrepare, "", func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
		rc.Locals[startTimeKey] = time.Now()
		return nil
	})
	chain.Register(Name, webdav.PhaseClose, "", func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
		var cost time.Duration
		if start, ok := rc.Locals[startTimeKey].(time.Time); ok {
			cost = time.Since(start)
		}
		user := ""
		if rc.User != nil {
			user = rc.User.GetUsername()
		}
		p.logger(rc).Info("access",
			zap.String("method", rc.Method),
			zap.String("path", rc.Path),
			zap.String("user", user),
			zap.Int("status", rc.Response.Status()),
			zap.Int64("size", rc.Response.Size()),
			zap.Duration("cost", cost),
		)
		return nil
	})
	return nil
}

func create(args interface{}) (webdav.IPlugin, error) {
	return New(nil), nil
}

func init() {
	plugin.Register(Name, create)
}
