package webdav

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
)

const (
	StatusMulti               = 207
	StatusLocked              = 423
	StatusFailedDependency    = 424
	StatusInsufficientStorage = 507
)

var statusText = map[int]string{
	StatusMulti:               "Multi-Status",
	StatusLocked:              "Locked",
	StatusFailedDependency:    "Failed Dependency",
	StatusInsufficientStorage: "Insufficient Storage",
}

// StatusText returns a text for the HTTP status code, WebDAV codes included.
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return http.StatusText(code)
}

// Error is a protocol level failure carrying the HTTP status it maps to.
type Error struct {
	Status int
	Name   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%d)", e.Name, e.Status)
}

func newError(status int, name string) *Error {
	return &Error{Status: status, Name: name}
}

var (
	ErrResourceNotFound        = newError(http.StatusNotFound, "resource not found")
	ErrResourceExists          = newError(http.StatusMethodNotAllowed, "resource exists")
	ErrBadGateway              = newError(http.StatusBadGateway, "bad gateway")
	ErrForbidden               = newError(http.StatusForbidden, "forbidden")
	ErrUnauthorized            = newError(http.StatusUnauthorized, "unauthorized")
	ErrLocked                  = newError(StatusLocked, "locked")
	ErrMethodNotSupported      = newError(http.StatusMethodNotAllowed, "method not supported")
	ErrMethodNotImplemented    = newError(http.StatusNotImplemented, "method not implemented")
	ErrBadRequest              = newError(http.StatusBadRequest, "bad request")
	ErrMediaTypeNotSupported   = newError(http.StatusUnsupportedMediaType, "media type not supported")
	ErrNotAcceptable           = newError(http.StatusNotAcceptable, "not acceptable")
	ErrResourceTreeNotComplete = newError(http.StatusConflict, "resource tree not complete")
	ErrPreconditionFailed      = newError(http.StatusPreconditionFailed, "precondition failed")
	ErrResourceNotModified     = newError(http.StatusNotModified, "resource not modified")
	ErrRangeNotSatisfiable     = newError(http.StatusRequestedRangeNotSatisfiable, "range not satisfiable")
	ErrInsufficientStorage     = newError(StatusInsufficientStorage, "insufficient storage")
	ErrFailedDependency        = newError(StatusFailedDependency, "failed dependency")
	ErrConflict                = newError(http.StatusConflict, "conflict")

	// property level outcomes, reported inside propstat blocks only
	ErrPropertyNotFound    = newError(http.StatusNotFound, "property not found")
	ErrPropertyIsProtected = newError(http.StatusForbidden, "property is protected")

	// ErrRequestHandled stops request processing once a hook wrote the response.
	ErrRequestHandled = errors.New("request handled")
)

// StatusOf maps err to the HTTP status it should be answered with.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ce *ConditionError
	if errors.As(err, &ce) {
		return StatusOf(ce.Err)
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// ConditionError attaches a DAV:error precondition element to err.
type ConditionError struct {
	Err       error
	Condition string
	Hrefs     []string
}

func (c *ConditionError) Error() string {
	return fmt.Sprintf("%s, condition:%s", c.Err.Error(), c.Condition)
}

func (c *ConditionError) Unwrap() error {
	return c.Err
}

func NewConditionError(err error, condition string, hrefs ...string) *ConditionError {
	return &ConditionError{Err: err, Condition: condition, Hrefs: hrefs}
}

type errorConditionXML struct {
	XMLName xml.Name
	Hrefs   []string `xml:"D:href"`
}

type errorXML struct {
	XMLName   xml.Name           `xml:"D:error"`
	XMLNS     string             `xml:"xmlns:D,attr,omitempty"`
	Condition *errorConditionXML `xml:",omitempty"`
}

func (c *ConditionError) toXML() *errorXML {
	return &errorXML{
		Condition: &errorConditionXML{
			XMLName: xml.Name{Local: "D:" + c.Condition},
			Hrefs:   c.Hrefs,
		},
	}
}
