package plugin

import (
	"fmt"
	"sort"

	"github.com/xxxsen/tgdav/webdav"
)

type CreateFunc func(args interface{}) (webdav.IPlugin, error)

var mp = make(map[string]CreateFunc)

func Register(name string, fn CreateFunc) {
	mp[name] = fn
}

func Create(name string, args interface{}) (webdav.IPlugin, error) {
	fn, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("plugin not found, name:%s", name)
	}
	return fn(args)
}

func List() []string {
	rs := make([]string, 0, len(mp))
	for name := range mp {
		rs = append(rs, name)
	}
	sort.Strings(rs)
	return rs
}
