package webdav

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

type innerXML struct {
	Inner string `xml:",innerxml"`
}

const (
	propfindAllProp  = "allprop"
	propfindPropName = "propname"
	propfindProp     = "prop"
)

type propfindRequest struct {
	Kind string
	// Names are the requested names for prop, or the include list of allprop.
	Names []string
}

func nextStart(d *xml.Decoder) (*xml.StartElement, error) {
	for {
		tk, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tk.(type) {
		case xml.StartElement:
			return &t, nil
		case xml.EndElement:
			return nil, nil
		}
	}
}

func readNames(d *xml.Decoder) ([]string, error) {
	rs := make([]string, 0, 8)
	for {
		se, err := nextStart(d)
		if err != nil {
			return nil, err
		}
		if se == nil {
			return rs, nil
		}
		rs = append(rs, EncodePropName(se.Name.Space, se.Name.Local))
		if err := d.Skip(); err != nil {
			return nil, err
		}
	}
}

// parsePropfind decodes a PROPFIND body, an empty body means allprop.
func parsePropfind(r io.Reader) (*propfindRequest, error) {
	d := xml.NewDecoder(r)
	root, err := nextStart(d)
	if err == io.EOF {
		return &propfindRequest{Kind: propfindAllProp}, nil
	}
	if err != nil {
		return nil, err
	}
	if root == nil || root.Name.Space != davNamespace || root.Name.Local != "propfind" {
		return nil, fmt.Errorf("root element is not DAV:propfind")
	}
	req := &propfindRequest{}
	for {
		se, err := nextStart(d)
		if err != nil {
			return nil, err
		}
		if se == nil {
			break
		}
		if se.Name.Space != davNamespace {
			if err := d.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		switch se.Name.Local {
		case propfindAllProp, propfindPropName:
			if len(req.Kind) != 0 && req.Kind != propfindAllProp {
				return nil, fmt.Errorf("multiple propfind kinds")
			}
			req.Kind = se.Name.Local
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case propfindProp:
			if len(req.Kind) != 0 {
				return nil, fmt.Errorf("multiple propfind kinds")
			}
			req.Kind = propfindProp
			if req.Names, err = readNames(d); err != nil {
				return nil, err
			}
		case "include":
			names, err := readNames(d)
			if err != nil {
				return nil, err
			}
			req.Names = append(req.Names, names...)
		default:
			if err := d.Skip(); err != nil {
				return nil, err
			}
		}
	}
	if len(req.Kind) == 0 {
		return nil, fmt.Errorf("empty propfind")
	}
	return req, nil
}

// parsePropertyUpdate decodes a PROPPATCH body keeping document order.
func parsePropertyUpdate(r io.Reader) ([]*PropInstruction, error) {
	d := xml.NewDecoder(r)
	root, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if root == nil || root.Name.Space != davNamespace || root.Name.Local != "propertyupdate" {
		return nil, fmt.Errorf("root element is not DAV:propertyupdate")
	}
	rs := make([]*PropInstruction, 0, 4)
	for {
		op, err := nextStart(d)
		if err != nil {
			return nil, err
		}
		if op == nil {
			break
		}
		if op.Name.Space != davNamespace || (op.Name.Local != PropActionSet && op.Name.Local != PropActionRemove) {
			if err := d.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		for {
			prop, err := nextStart(d)
			if err != nil {
				return nil, err
			}
			if prop == nil {
				break
			}
			if prop.Name.Space != davNamespace || prop.Name.Local != "prop" {
				if err := d.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			for {
				item, err := nextStart(d)
				if err != nil {
					return nil, err
				}
				if item == nil {
					break
				}
				v := &innerXML{}
				if err := d.DecodeElement(v, item); err != nil {
					return nil, err
				}
				ins := &PropInstruction{
					Action: op.Name.Local,
					Name:   EncodePropName(item.Name.Space, item.Name.Local),
				}
				if ins.Action == PropActionSet {
					ins.Value = v.Inner
				}
				rs = append(rs, ins)
			}
		}
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("no instruction found")
	}
	return rs, nil
}

type lockInfoXML struct {
	XMLName   xml.Name  `xml:"DAV: lockinfo"`
	Exclusive *struct{} `xml:"lockscope>exclusive"`
	Shared    *struct{} `xml:"lockscope>shared"`
	Write     *struct{} `xml:"locktype>write"`
	Owner     *ownerXML `xml:"owner"`
}

// ownerXML re-encodes the owner content so every element carries its own
// namespace, prefixes declared on enclosing elements do not survive storage.
type ownerXML struct {
	Inner string
}

func (o *ownerXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	buf := &bytes.Buffer{}
	enc := xml.NewEncoder(buf)
	spaces := []string{start.Name.Space}
	for len(spaces) > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]xml.Attr, 0, len(t.Attr)+1)
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				attrs = append(attrs, a)
			}
			if len(t.Name.Space) == 0 && len(spaces) > 1 && len(spaces[len(spaces)-1]) != 0 {
				attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xmlns"}})
			}
			t.Attr = attrs
			if err := enc.EncodeToken(t); err != nil {
				return err
			}
			spaces = append(spaces, t.Name.Space)
		case xml.EndElement:
			spaces = spaces[:len(spaces)-1]
			if len(spaces) == 0 {
				break
			}
			if err := enc.EncodeToken(t); err != nil {
				return err
			}
		case xml.CharData, xml.Comment:
			if err := enc.EncodeToken(t); err != nil {
				return err
			}
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	o.Inner = buf.String()
	return nil
}

type lockInfo struct {
	Scope string
	Owner string
}

func parseLockInfo(r io.Reader) (*lockInfo, error) {
	v := &lockInfoXML{}
	if err := xml.NewDecoder(r).Decode(v); err != nil {
		return nil, err
	}
	if v.Write == nil {
		return nil, fmt.Errorf("only write locks are supported")
	}
	info := &lockInfo{}
	switch {
	case v.Exclusive != nil && v.Shared == nil:
		info.Scope = LockScopeExclusive
	case v.Shared != nil && v.Exclusive == nil:
		info.Scope = LockScopeShared
	default:
		return nil, fmt.Errorf("invalid lock scope")
	}
	if v.Owner != nil {
		info.Owner = v.Owner.Inner
	}
	return info, nil
}

type emptyXML struct{}

type lockTypeXML struct {
	Write *emptyXML `xml:"D:write"`
}

type lockScopeXML struct {
	Exclusive *emptyXML `xml:"D:exclusive,omitempty"`
	Shared    *emptyXML `xml:"D:shared,omitempty"`
}

type hrefXML struct {
	Href string `xml:"D:href"`
}

type activeLockXML struct {
	XMLName   xml.Name     `xml:"D:activelock"`
	LockType  lockTypeXML  `xml:"D:locktype"`
	LockScope lockScopeXML `xml:"D:lockscope"`
	Depth     string       `xml:"D:depth"`
	Owner     *innerXML    `xml:"D:owner,omitempty"`
	Timeout   string       `xml:"D:timeout"`
	LockToken *hrefXML     `xml:"D:locktoken,omitempty"`
	LockRoot  hrefXML      `xml:"D:lockroot"`
}

type lockEntryXML struct {
	LockScope lockScopeXML `xml:"D:lockscope"`
	LockType  lockTypeXML  `xml:"D:locktype"`
}

type lockDiscoveryXML struct {
	XMLName xml.Name         `xml:"D:lockdiscovery"`
	Locks   []*activeLockXML `xml:"D:activelock"`
}

type lockPropXML struct {
	XMLName       xml.Name         `xml:"D:prop"`
	XMLNS         string           `xml:"xmlns:D,attr"`
	LockDiscovery lockDiscoveryXML `xml:"D:lockdiscovery"`
}

func scopeXML(scope string) lockScopeXML {
	if scope == LockScopeShared {
		return lockScopeXML{Shared: &emptyXML{}}
	}
	return lockScopeXML{Exclusive: &emptyXML{}}
}

func formatTimeout(l *Lock, now time.Time) string {
	left := l.ExpireAt().Sub(now)
	if left < time.Second {
		left = time.Second
	}
	return fmt.Sprintf("Second-%d", int64(left/time.Second))
}

func (rc *RequestContext) activeLockXML(l *Lock, now time.Time, withToken bool) *activeLockXML {
	a := &activeLockXML{
		LockType:  lockTypeXML{Write: &emptyXML{}},
		LockScope: scopeXML(l.Scope),
		Depth:     l.Depth,
		Timeout:   formatTimeout(l, now),
		LockRoot:  hrefXML{Href: rc.ResolveURL(l.Path, false).EscapedPath()},
	}
	if len(l.Owner) != 0 {
		a.Owner = &innerXML{Inner: l.Owner}
	}
	if withToken {
		a.LockToken = &hrefXML{Href: l.Token}
	}
	return a
}

func (rc *RequestContext) ownsLock(l *Lock) bool {
	return rc.User != nil && !rc.User.IsDefaultUser() && l.Username == rc.User.GetUsername()
}

func marshalInner(v interface{}) (string, error) {
	raw, err := xml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// lockDiscoveryValue renders the inner XML of DAV:lockdiscovery for locks.
// Tokens are only shown to the user holding the lock.
func (rc *RequestContext) lockDiscoveryValue(locks []*Lock) (string, error) {
	now := time.Now()
	out := ""
	for _, l := range locks {
		s, err := marshalInner(rc.activeLockXML(l, now, rc.ownsLock(l)))
		if err != nil {
			return "", err
		}
		out += s
	}
	return out, nil
}

func supportedLockValue() (string, error) {
	out := ""
	for _, scope := range []string{LockScopeExclusive, LockScopeShared} {
		s, err := marshalInner(&struct {
			XMLName xml.Name `xml:"D:lockentry"`
			lockEntryXML
		}{lockEntryXML: lockEntryXML{LockScope: scopeXML(scope), LockType: lockTypeXML{Write: &emptyXML{}}}})
		if err != nil {
			return "", err
		}
		out += s
	}
	return out, nil
}

func newBadXMLError(err error) error {
	return fmt.Errorf("parse xml body failed, err:%v, %w", err, ErrBadRequest)
}
