package webdav

import (
	"encoding/xml"
	"strings"
)

const (
	davNamespace = "DAV:"
	propNameSep  = "%%"
	davPrefix    = "D:"
)

const (
	PropCreationDate    = "creationdate"
	PropDisplayName     = "displayname"
	PropContentLength   = "getcontentlength"
	PropContentType     = "getcontenttype"
	PropContentLanguage = "getcontentlanguage"
	PropETag            = "getetag"
	PropLastModified    = "getlastmodified"
	PropResourceType    = "resourcetype"
	PropLockDiscovery   = "lockdiscovery"
	PropSupportedLock   = "supportedlock"
)

// EncodePropName returns the property key of a namespaced name. DAV: names
// are kept bare, others become namespace%%local.
func EncodePropName(space string, local string) string {
	if space == davNamespace {
		return local
	}
	return space + propNameSep + local
}

func DecodePropName(name string) (string, string) {
	idx := strings.Index(name, propNameSep)
	if idx < 0 {
		return davNamespace, name
	}
	return name[:idx], name[idx+len(propNameSep):]
}

func propXMLName(name string) xml.Name {
	space, local := DecodePropName(name)
	if space == davNamespace {
		return xml.Name{Local: davPrefix + local}
	}
	return xml.Name{Space: space, Local: local}
}

// EscapeText escapes s for use as a text property value.
func EscapeText(s string) string {
	sb := &strings.Builder{}
	_ = xml.EscapeText(sb, []byte(s))
	return sb.String()
}
