package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the metadata of a transport response.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Resource is a record as it appears on the wire.
type Resource struct {
	Type          string         `json:"type"`
	ID            string         `json:"id,omitempty"`
	LID           string         `json:"lid,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Relationships map[string]any `json:"relationships,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// Ref returns the reference identifying the resource.
func (r Resource) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID, LID: r.LID}
}

// ResourceData is the primary data of a payload: null, a single resource, or
// an ordered list of resources.
type ResourceData struct {
	One  *Resource
	Many []Resource
	List bool
}

// Single returns primary data holding one resource.
func Single(r Resource) ResourceData {
	return ResourceData{One: &r}
}

// Collection returns primary data holding an ordered list.
func Collection(rs ...Resource) ResourceData {
	if rs == nil {
		rs = []Resource{}
	}
	return ResourceData{Many: rs, List: true}
}

// IsNull reports whether the data is null.
func (d ResourceData) IsNull() bool {
	return !d.List && d.One == nil
}

// MarshalJSON encodes null, an object, or an array.
func (d ResourceData) MarshalJSON() ([]byte, error) {
	switch {
	case d.List:
		if d.Many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.Many)
	case d.One != nil:
		return json.Marshal(d.One)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null, an object, or an array.
func (d *ResourceData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = ResourceData{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '[':
		d.List = true
		d.Many = []Resource{}
		return json.Unmarshal(b, &d.Many)
	case b[0] == '{':
		var r Resource
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		d.One = &r
		return nil
	default:
		return fmt.Errorf("request: invalid primary data %q", b)
	}
}

// ErrorSource points at the part of a request an error concerns.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// APIError is a single error object of an error payload.
type APIError struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Payload is a JSON:API shaped response body.
type Payload struct {
	Data     ResourceData      `json:"data"`
	Included []Resource        `json:"included,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
	Errors   []APIError        `json:"errors,omitempty"`
}

// IsEmpty reports whether the payload carries nothing at all.
func (p *Payload) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Data.IsNull() &&
		len(p.Included) == 0 &&
		len(p.Links) == 0 &&
		len(p.Meta) == 0 &&
		len(p.Errors) == 0
}

// StructuredDocument is the success half of the transport contract.
// Content is nil for responses without a body, such as 204 No Content.
type StructuredDocument struct {
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
	Content  *Payload  `json:"content,omitempty"`
}

// Status returns the response status, or 0 when there was no response.
func (d *StructuredDocument) Status() int {
	if d == nil || d.Response == nil {
		return 0
	}
	return d.Response.Status
}

// IsCacheAffecting reports whether a successful response should be written
// into the cache. Reads always are. A mutation answered with 204, or a
// createRecord answered with an empty 201, has no cache impact on its own.
func IsCacheAffecting(doc *StructuredDocument) bool {
	if doc == nil {
		return false
	}
	if doc.Request == nil || !doc.Request.Op.IsMutation() {
		return true
	}
	status := doc.Status()
	if doc.Request.Op == OpCreateRecord && status == http.StatusCreated {
		return !doc.Content.IsEmpty()
	}
	return status != http.StatusNoContent
}
