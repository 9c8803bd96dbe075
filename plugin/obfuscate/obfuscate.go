package obfuscate

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/tgdav/blockio"
	"github.com/xxxsen/tgdav/plugin"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	Name = "obfuscate"
)

type config struct {
	Rotate int `json:"rotate"`
}

// obfuscatePlugin stores bodies with every byte shifted and shifts them back
// on the way out.
type obfuscatePlugin struct {
	val int
}

func New(rotate int) (webdav.IPlugin, error) {
	val := rotate % 256
	if val < 0 {
		val += 256
	}
	if val == 0 {
		return nil, fmt.Errorf("rotate value should not be a multiple of 256")
	}
	return &obfuscatePlugin{val: val}, nil
}

func (p *obfuscatePlugin) Name() string {
	return Name
}

func rotateTransform(val int) webdav.StreamTransform {
	return func(ctx context.Context, r io.Reader, w io.Writer) error {
		_, err := io.Copy(w, blockio.NewRotateReader(r, val))
		return err
	}
}

func (p *obfuscatePlugin) Init(chain *webdav.HookChain) error {
	chain.Register(Name, webdav.PhaseBefore, http.MethodPut, func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
		rc.AddRequestTransform(rotateTransform(p.val))
		return nil
	})
	chain.Register(Name, webdav.PhaseBefore, http.MethodGet, func(rc *webdav.RequestContext, args *webdav.HookArgs) error {
		rc.AddResponseTransform(rotateTransform(256 - p.val))
		return nil
	})
	return nil
}

func create(args interface{}) (webdav.IPlugin, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(c.Rotate)
}

func init() {
	plugin.Register(Name, create)
}
