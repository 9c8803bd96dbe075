package webdav

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

// Property is a resolved property ready to be rendered.
type Property struct {
	Name  string
	Value string
}

// PropStatStatus groups properties sharing one outcome.
type PropStatStatus struct {
	StatusCode  int
	Description string
	Props       []*Property
}

// Status is the outcome for one resource of a multi status response.
type Status struct {
	Href        string
	StatusCode  int
	Description string
	Error       *ConditionError
	// Body is raw XML placed inside the response element.
	Body      string
	PropStats []*PropStatStatus
}

func (s *Status) AddPropStat(ps *PropStatStatus) {
	s.PropStats = append(s.PropStats, ps)
}

func (s *Status) IsFailure() bool {
	if len(s.PropStats) != 0 {
		for _, ps := range s.PropStats {
			if ps.StatusCode >= 300 {
				return true
			}
		}
		return false
	}
	return s.StatusCode >= 300
}

type MultiStatus struct {
	statuses []*Status
}

func NewMultiStatus() *MultiStatus {
	return &MultiStatus{}
}

func (m *MultiStatus) AddStatus(s *Status) {
	m.statuses = append(m.statuses, s)
}

func (m *MultiStatus) Statuses() []*Status {
	return m.statuses
}

func (m *MultiStatus) Len() int {
	return len(m.statuses)
}

func (m *MultiStatus) HasFailures() bool {
	for _, s := range m.statuses {
		if s.IsFailure() {
			return true
		}
	}
	return false
}

type propertyXML struct {
	XMLName  xml.Name
	InnerXML string `xml:",innerxml"`
}

type propXML struct {
	Props []*propertyXML
}

type propStatXML struct {
	Prop        propXML `xml:"D:prop"`
	Status      string  `xml:"D:status"`
	Description string  `xml:"D:responsedescription,omitempty"`
}

type responseXML struct {
	Href        string         `xml:"D:href"`
	Body        string         `xml:",innerxml"`
	Status      string         `xml:"D:status,omitempty"`
	PropStats   []*propStatXML `xml:"D:propstat"`
	Error       *errorXML      `xml:"D:error,omitempty"`
	Description string         `xml:"D:responsedescription,omitempty"`
}

type multistatusXML struct {
	XMLName   xml.Name       `xml:"D:multistatus"`
	XMLNS     string         `xml:"xmlns:D,attr"`
	Responses []*responseXML `xml:"D:response"`
}

func statusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, StatusText(code))
}

func toPropXML(props []*Property) propXML {
	rs := propXML{Props: make([]*propertyXML, 0, len(props))}
	for _, p := range props {
		rs.Props = append(rs.Props, &propertyXML{XMLName: propXMLName(p.Name), InnerXML: p.Value})
	}
	return rs
}

func (s *Status) toXML() *responseXML {
	r := &responseXML{
		Href:        s.Href,
		Body:        s.Body,
		Description: s.Description,
	}
	if s.Error != nil {
		r.Error = s.Error.toXML()
	}
	if len(s.PropStats) == 0 {
		r.Status = statusLine(s.StatusCode)
		return r
	}
	for _, ps := range s.PropStats {
		r.PropStats = append(r.PropStats, &propStatXML{
			Prop:        toPropXML(ps.Props),
			Status:      statusLine(ps.StatusCode),
			Description: ps.Description,
		})
	}
	return r
}

// Render writes the aggregate document, one response per status in insertion order.
func (m *MultiStatus) Render(w io.Writer) error {
	doc := &multistatusXML{XMLNS: davNamespace}
	for _, s := range m.statuses {
		doc.Responses = append(doc.Responses, s.toXML())
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(doc)
}

func writeXML(w http.ResponseWriter, code int, v interface{}) error {
	buf := &bytes.Buffer{}
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(code)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeMultiStatus(w http.ResponseWriter, ms *MultiStatus) error {
	buf := &bytes.Buffer{}
	if err := ms.Render(buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(StatusMulti)
	_, err := w.Write(buf.Bytes())
	return err
}
