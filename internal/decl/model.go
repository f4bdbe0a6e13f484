// Package decl parses route and extractor directives into declarations.
//
// A route directive is written in a handler's doc comment, possibly spread
// over several lines:
//
//	//autoroute:route GET, path="/items/{id}", tags=["items"],
//	//autoroute:route   responses=[(200, body=Item), (NOT_FOUND, body=string, serializer=NONE)]
//
// Extractor directives attach per-parameter overrides:
//
//	//autoroute:extractor filter trace=false, into_params=true
package decl

import (
	"go/ast"
	"go/token"

	"github.com/mark3labs/autoroute/internal/catalog"
)

// Route is one parsed route declaration.
type Route struct {
	Pos       token.Position
	Method    catalog.Method
	Path      string
	PathPos   token.Position
	Tags      []string
	Responses []Response
}

// SerializerKind selects how a response body is written.
type SerializerKind int

const (
	SerializerDefault SerializerKind = iota
	SerializerNone
	SerializerCustom
)

func (k SerializerKind) String() string {
	switch k {
	case SerializerNone:
		return "none"
	case SerializerCustom:
		return "custom"
	default:
		return "default"
	}
}

// Serializer is the declared serializer of a response.
type Serializer struct {
	Kind SerializerKind
	// Expr is the Go expression of a custom serializer.
	Expr *TypeExpr
}

// TypeExpr is a Go expression taken from a declaration, with its source text
// normalized and its position kept for diagnostics.
type TypeExpr struct {
	Text string
	Expr ast.Expr
	Pos  token.Position
}

func (t TypeExpr) String() string { return t.Text }

// HeaderDoc documents a response header. It is not enforced at runtime.
type HeaderDoc struct {
	Header      catalog.Header
	Description string
}

// Response is one declared outcome of a handler.
type Response struct {
	Pos         token.Position
	Status      catalog.Status
	Body        TypeExpr
	Parts       []TypeExpr
	ContentType catalog.MIME
	Serializer  Serializer
	Headers     []HeaderDoc
	Description string
	Trace       bool
}

// ExtractorAttr holds the per-parameter overrides of an extractor directive.
type ExtractorAttr struct {
	Pos          token.Position
	Param        string
	Trace        *bool
	ContentTypes []catalog.MIME
	IntoParams   *bool
	Bind         *TypeExpr
}
