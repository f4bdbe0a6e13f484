// Package docs builds documentation records for annotated handlers.
//
// An Entry is derived from the same declaration, contract and extraction
// analysis that drive code generation, so it always agrees with what the
// generated adapter accepts and returns.
package docs

import (
	"net/http"

	"github.com/mark3labs/autoroute/internal/contract"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/diag"
	"github.com/mark3labs/autoroute/internal/extract"
)

// Param documents an extractor whose inner type describes request parameters.
type Param struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Kind string `json:"kind" yaml:"kind"`
	// In is path or query for built-in kinds and empty for user kinds.
	In string `json:"in,omitempty" yaml:"in,omitempty"`
}

// Body documents the request body.
type Body struct {
	Type         string   `json:"type" yaml:"type"`
	ContentTypes []string `json:"content_types" yaml:"content_types"`
	Raw          bool     `json:"raw,omitempty" yaml:"raw,omitempty"`
}

type Header struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Response documents one declared status.
type Response struct {
	Status      int      `json:"status" yaml:"status"`
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Parts       []string `json:"parts,omitempty" yaml:"parts,omitempty"`
	ContentType string   `json:"content_type" yaml:"content_type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Headers     []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Entry is the documentation record of one handler.
type Entry struct {
	// Handler names the documented function. Manifests key entries by it.
	Handler     string     `json:"-" yaml:"-"`
	Method      string     `json:"method" yaml:"method"`
	Path        string     `json:"path" yaml:"path"`
	Tags        []string   `json:"tags" yaml:"tags"`
	Parameters  []Param    `json:"parameters" yaml:"parameters"`
	RequestBody *Body      `json:"request_body,omitempty" yaml:"request_body,omitempty"`
	Responses   []Response `json:"responses" yaml:"responses"`
}

// Build assembles the entry of one handler.
func Build(route *decl.Route, c *contract.Contract, fn *extract.Func) (*Entry, error) {
	e := &Entry{
		Handler:    c.Handler,
		Method:     string(route.Method),
		Path:       route.Path,
		Tags:       append([]string{}, route.Tags...),
		Parameters: []Param{},
		Responses:  make([]Response, 0, len(c.Variants)),
	}

	var payload *extract.Site
	for i := range fn.Sites {
		s := &fn.Sites[i]
		if s.Role == extract.RolePayload {
			if payload != nil {
				return nil, diag.Errorf(s.Pos, diag.MultiplePayloads, "multiple extractors consuming the body are defined")
			}
			payload = s
			continue
		}
		if !s.IntoParams {
			continue
		}
		p := Param{Name: s.Bound, Type: s.Inner, Kind: s.Label()}
		if s.Kind != nil {
			p.In = s.Kind.ParamIn
		}
		e.Parameters = append(e.Parameters, p)
	}
	if payload != nil {
		b := &Body{Type: payload.Inner}
		if payload.Kind != nil && payload.Kind.RawBody {
			b.Type, b.Raw = "[]byte", true
		}
		for _, ct := range payload.ContentTypes {
			b.ContentTypes = append(b.ContentTypes, string(ct))
		}
		e.RequestBody = b
	}

	for _, v := range c.Variants {
		r := Response{
			Status:      v.Status.Code,
			Name:        v.Status.Symbol,
			Type:        v.Body,
			Parts:       v.Parts,
			ContentType: string(v.DocContentType()),
			Description: v.Description,
		}
		if r.Description == "" {
			r.Description = http.StatusText(v.Status.Code)
		}
		for _, h := range v.Headers {
			r.Headers = append(r.Headers, Header{Name: h.Header.Name, Description: h.Description})
		}
		e.Responses = append(e.Responses, r)
	}
	return e, nil
}
