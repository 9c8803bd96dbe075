package backend

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/xxxsen/tgdav/propstore"
	"github.com/xxxsen/tgdav/webdav"
)

// ICreationTimer is implemented by resources that remember when they were created.
type ICreationTimer interface {
	GetCreationTime(ctx context.Context) (time.Time, error)
}

var protectedProps = map[string]struct{}{
	webdav.PropCreationDate:  {},
	webdav.PropDisplayName:   {},
	webdav.PropContentLength: {},
	webdav.PropContentType:   {},
	webdav.PropETag:          {},
	webdav.PropLastModified:  {},
	webdav.PropResourceType:  {},
	webdav.PropLockDiscovery: {},
	webdav.PropSupportedLock: {},
}

func IsProtectedProp(name string) bool {
	_, ok := protectedProps[name]
	return ok
}

type properties struct {
	res   webdav.IResource
	store propstore.IPropStore
}

// NewProperties serves the live properties of res and keeps the dead ones in store.
func NewProperties(res webdav.IResource, store propstore.IPropStore) webdav.IProperties {
	return &properties{res: res, store: store}
}

func (p *properties) path() string {
	return p.res.GetCanonicalPath()
}

func (p *properties) liveNames() []string {
	if p.res.IsCollection() {
		return []string{
			webdav.PropCreationDate,
			webdav.PropDisplayName,
			webdav.PropLastModified,
			webdav.PropResourceType,
		}
	}
	return []string{
		webdav.PropCreationDate,
		webdav.PropDisplayName,
		webdav.PropContentLength,
		webdav.PropContentType,
		webdav.PropETag,
		webdav.PropLastModified,
		webdav.PropResourceType,
	}
}

func (p *properties) isLive(name string) bool {
	for _, n := range p.liveNames() {
		if n == name {
			return true
		}
	}
	return false
}

func (p *properties) creationTime(ctx context.Context) (time.Time, error) {
	if ct, ok := p.res.(ICreationTimer); ok {
		return ct.GetCreationTime(ctx)
	}
	return p.res.GetLastModified(ctx)
}

func (p *properties) liveValue(ctx context.Context, name string) (string, error) {
	switch name {
	case webdav.PropCreationDate:
		t, err := p.creationTime(ctx)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(time.RFC3339), nil
	case webdav.PropDisplayName:
		return webdav.EscapeText(p.res.GetCanonicalName()), nil
	case webdav.PropContentLength:
		n, err := p.res.GetLength(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case webdav.PropContentType:
		v, err := p.res.GetMediaType(ctx)
		if err != nil {
			return "", err
		}
		return webdav.EscapeText(v), nil
	case webdav.PropETag:
		v, err := p.res.GetEtag(ctx)
		if err != nil {
			return "", err
		}
		return webdav.EscapeText(v), nil
	case webdav.PropLastModified:
		t, err := p.res.GetLastModified(ctx)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(http.TimeFormat), nil
	case webdav.PropResourceType:
		if p.res.IsCollection() {
			return "<D:collection/>", nil
		}
		return "", nil
	}
	return "", webdav.ErrPropertyNotFound
}

func (p *properties) Get(ctx context.Context, name string) (string, error) {
	if p.isLive(name) {
		return p.liveValue(ctx, name)
	}
	props, err := p.store.GetProps(ctx, p.path())
	if err != nil {
		return "", err
	}
	v, ok := props[name]
	if !ok {
		return "", fmt.Errorf("prop:%s, %w", name, webdav.ErrPropertyNotFound)
	}
	return v, nil
}

func (p *properties) GetByUser(ctx context.Context, name string, user webdav.IUser) (string, error) {
	return p.Get(ctx, name)
}

func (p *properties) Set(ctx context.Context, name string, value string) error {
	if IsProtectedProp(name) {
		return fmt.Errorf("prop:%s, %w", name, webdav.ErrPropertyIsProtected)
	}
	return p.store.Apply(ctx, p.path(), map[string]string{name: value}, nil)
}

func (p *properties) SetByUser(ctx context.Context, name string, value string, user webdav.IUser) error {
	return p.Set(ctx, name, value)
}

func (p *properties) Remove(ctx context.Context, name string) error {
	if IsProtectedProp(name) {
		return fmt.Errorf("prop:%s, %w", name, webdav.ErrPropertyIsProtected)
	}
	return p.store.Apply(ctx, p.path(), nil, []string{name})
}

func (p *properties) RemoveByUser(ctx context.Context, name string, user webdav.IUser) error {
	return p.Remove(ctx, name)
}

func (p *properties) RunInstructions(ctx context.Context, ins []*webdav.PropInstruction) ([]*webdav.PropError, error) {
	var perrs []*webdav.PropError
	for _, item := range ins {
		if IsProtectedProp(item.Name) {
			perrs = append(perrs, &webdav.PropError{Name: item.Name, Err: webdav.ErrPropertyIsProtected})
		}
	}
	if len(perrs) != 0 {
		return perrs, nil
	}
	set := make(map[string]string, len(ins))
	removed := make(map[string]struct{}, len(ins))
	for _, item := range ins {
		switch item.Action {
		case webdav.PropActionSet:
			set[item.Name] = item.Value
			delete(removed, item.Name)
		case webdav.PropActionRemove:
			delete(set, item.Name)
			removed[item.Name] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown prop action:%s", item.Action)
		}
	}
	remove := make([]string, 0, len(removed))
	for name := range removed {
		remove = append(remove, name)
	}
	if err := p.store.Apply(ctx, p.path(), set, remove); err != nil {
		return nil, fmt.Errorf("apply props failed, err:%w", err)
	}
	return nil, nil
}

func (p *properties) RunInstructionsByUser(ctx context.Context, ins []*webdav.PropInstruction, user webdav.IUser) ([]*webdav.PropError, error) {
	return p.RunInstructions(ctx, ins)
}

func (p *properties) GetAll(ctx context.Context) (map[string]string, error) {
	rs, err := p.store.GetProps(ctx, p.path())
	if err != nil {
		return nil, err
	}
	for _, name := range p.liveNames() {
		v, err := p.liveValue(ctx, name)
		if err != nil {
			return nil, err
		}
		rs[name] = v
	}
	return rs, nil
}

func (p *properties) GetAllByUser(ctx context.Context, user webdav.IUser) (map[string]string, error) {
	return p.GetAll(ctx)
}

func (p *properties) List(ctx context.Context) ([]string, error) {
	dead, err := p.ListDead(ctx)
	if err != nil {
		return nil, err
	}
	return append(p.liveNames(), dead...), nil
}

func (p *properties) ListByUser(ctx context.Context, user webdav.IUser) ([]string, error) {
	return p.List(ctx)
}

func (p *properties) ListLive(ctx context.Context) ([]string, error) {
	return p.liveNames(), nil
}

func (p *properties) ListLiveByUser(ctx context.Context, user webdav.IUser) ([]string, error) {
	return p.ListLive(ctx)
}

func (p *properties) ListDead(ctx context.Context) ([]string, error) {
	props, err := p.store.GetProps(ctx, p.path())
	if err != nil {
		return nil, err
	}
	rs := make([]string, 0, len(props))
	for name := range props {
		if p.isLive(name) {
			continue
		}
		rs = append(rs, name)
	}
	sort.Strings(rs)
	return rs, nil
}

func (p *properties) ListDeadByUser(ctx context.Context, user webdav.IUser) ([]string, error) {
	return p.ListDead(ctx)
}
