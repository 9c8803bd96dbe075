package webdav

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKeepsInsertionOrder(t *testing.T) {
	ms := NewMultiStatus()
	hrefs := []string{"/z", "/a", "/m", "/b"}
	for _, h := range hrefs {
		ms.AddStatus(&Status{Href: h, StatusCode: http.StatusOK})
	}
	buf := &bytes.Buffer{}
	require.NoError(t, ms.Render(buf))

	doc := &struct {
		Responses []struct {
			Href   string `xml:"DAV: href"`
			Status string `xml:"DAV: status"`
		} `xml:"DAV: response"`
	}{}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), doc))
	require.Len(t, doc.Responses, len(hrefs))
	for i, h := range hrefs {
		assert.Equal(t, h, doc.Responses[i].Href)
		assert.Equal(t, "HTTP/1.1 200 OK", doc.Responses[i].Status)
	}
	assert.False(t, ms.HasFailures())
}

func TestRenderPropStatsAndErrors(t *testing.T) {
	ms := NewMultiStatus()
	st := &Status{Href: "/r"}
	st.AddPropStat(&PropStatStatus{StatusCode: http.StatusOK, Props: []*Property{
		{Name: PropDisplayName, Value: "r"},
		{Name: EncodePropName("urn:x", "color"), Value: "red"},
	}})
	st.AddPropStat(&PropStatStatus{StatusCode: http.StatusNotFound, Props: []*Property{{Name: "urn:x%%size"}}})
	ms.AddStatus(st)
	ms.AddStatus(&Status{
		Href:       "/locked",
		StatusCode: StatusLocked,
		Error:      NewConditionError(ErrLocked, "lock-token-submitted", "/root"),
	})
	assert.True(t, ms.HasFailures())

	buf := &bytes.Buffer{}
	require.NoError(t, ms.Render(buf))
	out := buf.String()
	assert.Contains(t, out, `<D:displayname>r</D:displayname>`)
	assert.Contains(t, out, `<color xmlns="urn:x">red</color>`)
	assert.Contains(t, out, "HTTP/1.1 404 Not Found")
	assert.Contains(t, out, "HTTP/1.1 423 Locked")
	assert.Contains(t, out, `<D:lock-token-submitted><D:href>/root</D:href></D:lock-token-submitted>`)
}

func TestPropGroupsOrder(t *testing.T) {
	g := newPropGroups()
	g.add(http.StatusNotFound, &Property{Name: "a"})
	g.add(http.StatusInternalServerError, &Property{Name: "b"})
	g.add(http.StatusOK, &Property{Name: "c"})
	g.add(http.StatusForbidden, &Property{Name: "d"})
	st := &Status{}
	g.apply(st)
	codes := make([]int, 0, len(st.PropStats))
	for _, ps := range st.PropStats {
		codes = append(codes, ps.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError}, codes)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, StatusLocked, StatusOf(NewConditionError(ErrLocked, "lock-token-submitted")))
	assert.Equal(t, http.StatusNotFound, StatusOf(ErrPropertyNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(assert.AnError))
	assert.Equal(t, "Multi-Status", StatusText(StatusMulti))
}

func TestParseTimeout(t *testing.T) {
	maxTimeout := 2 * time.Hour
	assert.Equal(t, time.Hour, parseTimeout("", time.Hour, maxTimeout))
	assert.Equal(t, 100*time.Second, parseTimeout("Second-100", time.Hour, maxTimeout))
	assert.Equal(t, maxTimeout, parseTimeout("Infinite, Second-10", time.Hour, maxTimeout))
	assert.Equal(t, 10*time.Second, parseTimeout("Second-x, Second-10", time.Hour, maxTimeout))
	assert.Equal(t, maxTimeout, parseTimeout("Second-99999999", time.Hour, maxTimeout))
}

func TestParseRange(t *testing.T) {
	rng, err := parseRange("bytes=0-4", 10)
	require.NoError(t, err)
	assert.Equal(t, &Range{Start: 0, End: 4}, rng)
	rng, err = parseRange("bytes=-3", 10)
	require.NoError(t, err)
	assert.Equal(t, &Range{Start: 7, End: 9}, rng)
	rng, err = parseRange("bytes=5-100", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rng.Length())
	rng, err = parseRange("bytes=0-1,3-4", 10)
	require.NoError(t, err)
	assert.Nil(t, rng)
	_, err = parseRange("bytes=10-", 10)
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
}

func TestLockExpiry(t *testing.T) {
	now := time.Now()
	l := &Lock{CreatedAt: now.Add(-2 * time.Second), Timeout: time.Second, Scope: LockScopeExclusive, Depth: DepthInfinity}
	assert.True(t, l.IsExpired(now))
	assert.True(t, l.IsExclusive())
	assert.True(t, l.IsDepthInfinity())
	l.Timeout = time.Minute
	assert.False(t, l.IsExpired(now))
}

func TestParseLockInfo(t *testing.T) {
	info, err := parseLockInfo(bytes.NewReader([]byte(`<?xml version="1.0"?>
<D:lockinfo xmlns:D="DAV:"><D:lockscope><D:shared/></D:lockscope><D:locktype><D:write/></D:locktype><D:owner>me</D:owner></D:lockinfo>`)))
	require.NoError(t, err)
	assert.Equal(t, LockScopeShared, info.Scope)
	assert.Equal(t, "me", info.Owner)

	_, err = parseLockInfo(bytes.NewReader([]byte(`<D:lockinfo xmlns:D="DAV:"><D:lockscope><D:shared/></D:lockscope></D:lockinfo>`)))
	assert.Error(t, err)
}

func TestParseLockInfoOwnerNamespaces(t *testing.T) {
	info, err := parseLockInfo(bytes.NewReader([]byte(`<l:lockinfo xmlns:l="DAV:" xmlns:x="urn:x">
<l:lockscope><l:exclusive/></l:lockscope><l:locktype><l:write/></l:locktype>
<l:owner><x:name kind="1">al<x:sub/><plain/></x:name></l:owner></l:lockinfo>`)))
	require.NoError(t, err)
	assert.Equal(t, LockScopeExclusive, info.Scope)
	assert.Contains(t, info.Owner, `<name xmlns="urn:x" kind="1">al`)
	assert.Contains(t, info.Owner, `<sub xmlns="urn:x"></sub>`)
	assert.Contains(t, info.Owner, `<plain xmlns=""></plain>`)
	assert.NotContains(t, info.Owner, "x:")
}

func TestParsePropertyUpdateOrder(t *testing.T) {
	ins, err := parsePropertyUpdate(bytes.NewReader([]byte(`<?xml version="1.0"?>
<D:propertyupdate xmlns:D="DAV:" xmlns:x="urn:x">
  <D:set><D:prop><x:a>1</x:a></D:prop></D:set>
  <D:remove><D:prop><x:a/></D:prop></D:remove>
  <D:set><D:prop><x:b><x:inner/></x:b></D:prop></D:set>
</D:propertyupdate>`)))
	require.NoError(t, err)
	require.Len(t, ins, 3)
	assert.Equal(t, PropActionSet, ins[0].Action)
	assert.Equal(t, "urn:x%%a", ins[0].Name)
	assert.Equal(t, "1", ins[0].Value)
	assert.Equal(t, PropActionRemove, ins[1].Action)
	assert.Equal(t, "urn:x%%b", ins[2].Name)
	assert.Contains(t, ins[2].Value, "inner")
}
