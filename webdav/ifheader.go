package webdav

import (
	"fmt"
	"strings"
)

const noLockToken = "DAV:no-lock"

type ifCondition struct {
	Not   bool
	Token string
	ETag  string
}

type ifList struct {
	// Resource is the tagged URL, empty for untagged lists.
	Resource   string
	Conditions []ifCondition
}

type ifHeader struct {
	Lists []ifList
}

// Tokens returns the state tokens asserted by the header, negated ones excluded.
func (h *ifHeader) Tokens() []string {
	if h == nil {
		return nil
	}
	rs := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for _, l := range h.Lists {
		for _, c := range l.Conditions {
			if c.Not || len(c.Token) == 0 || c.Token == noLockToken {
				continue
			}
			if _, ok := seen[c.Token]; ok {
				continue
			}
			seen[c.Token] = struct{}{}
			rs = append(rs, c.Token)
		}
	}
	return rs
}

type ifLexer struct {
	s   string
	pos int
}

func (l *ifLexer) skipSpace() {
	for l.pos < len(l.s) && (l.s[l.pos] == ' ' || l.s[l.pos] == '\t') {
		l.pos++
	}
}

func (l *ifLexer) eof() bool {
	l.skipSpace()
	return l.pos >= len(l.s)
}

func (l *ifLexer) peek() byte {
	l.skipSpace()
	if l.pos >= len(l.s) {
		return 0
	}
	return l.s[l.pos]
}

func (l *ifLexer) readUntil(end byte) (string, error) {
	start := l.pos
	idx := strings.IndexByte(l.s[start:], end)
	if idx < 0 {
		return "", fmt.Errorf("unterminated token at:%d, want:%c", start, end)
	}
	l.pos = start + idx + 1
	return l.s[start : start+idx], nil
}

func (l *ifLexer) readCondition() (ifCondition, error) {
	c := ifCondition{}
	if strings.HasPrefix(l.s[l.pos:], "Not") {
		c.Not = true
		l.pos += len("Not")
		l.skipSpace()
	}
	switch l.peek() {
	case '<':
		l.pos++
		tk, err := l.readUntil('>')
		if err != nil {
			return c, err
		}
		c.Token = tk
	case '[':
		l.pos++
		etag, err := l.readUntil(']')
		if err != nil {
			return c, err
		}
		c.ETag = etag
	default:
		return c, fmt.Errorf("unexpected char at:%d", l.pos)
	}
	return c, nil
}

func (l *ifLexer) readList() ([]ifCondition, error) {
	l.pos++ // (
	rs := make([]ifCondition, 0, 2)
	for {
		switch l.peek() {
		case 0:
			return nil, fmt.Errorf("unterminated list")
		case ')':
			l.pos++
			if len(rs) == 0 {
				return nil, fmt.Errorf("empty list")
			}
			return rs, nil
		}
		c, err := l.readCondition()
		if err != nil {
			return nil, err
		}
		rs = append(rs, c)
	}
}

// parseIfHeader parses a WebDAV If header into its lists.
func parseIfHeader(v string) (*ifHeader, error) {
	l := &ifLexer{s: strings.TrimSpace(v)}
	h := &ifHeader{}
	tagged := false
	resource := ""
	for !l.eof() {
		switch l.peek() {
		case '<':
			if len(h.Lists) == 0 && len(resource) == 0 {
				tagged = true
			}
			if !tagged {
				return nil, fmt.Errorf("mixed tagged and untagged lists")
			}
			l.pos++
			r, err := l.readUntil('>')
			if err != nil {
				return nil, err
			}
			resource = r
			if l.peek() != '(' {
				return nil, fmt.Errorf("resource tag without list")
			}
		case '(':
			if tagged && len(resource) == 0 {
				return nil, fmt.Errorf("list without resource tag")
			}
			conds, err := l.readList()
			if err != nil {
				return nil, err
			}
			h.Lists = append(h.Lists, ifList{Resource: resource, Conditions: conds})
		default:
			return nil, fmt.Errorf("unexpected char at:%d", l.pos)
		}
	}
	if len(h.Lists) == 0 {
		return nil, fmt.Errorf("no list found")
	}
	return h, nil
}
