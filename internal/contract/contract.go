// Package contract synthesizes the closed response type of a handler from its
// declared responses and checks the handler against it.
package contract

import (
	"go/ast"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/diag"
)

// Serialization is the resolved serializer of a variant.
type Serialization int

const (
	SerializeJSON Serialization = iota
	SerializeRaw
	SerializeCustom
)

func (s Serialization) String() string {
	switch s {
	case SerializeRaw:
		return "raw"
	case SerializeCustom:
		return "custom"
	default:
		return "json"
	}
}

// Options tunes synthesis.
type Options struct {
	// RawByDefault makes responses without a serializer write their body raw
	// instead of as JSON.
	RawByDefault bool
}

// Variant is one status of a generated contract.
type Variant struct {
	Status      catalog.Status
	TypeName    string
	Constructor string
	Into        string
	Parts       []string
	Body        string
	Serialize   Serialization
	// SerializerExpr is the Go expression of a custom serializer.
	SerializerExpr string
	// ContentType is the declared override, possibly empty.
	ContentType catalog.MIME
	Description string
	Headers     []decl.HeaderDoc
	Trace       bool
}

// Field is a struct field of a variant.
type Field struct {
	Name  string
	Param string
	Type  string
}

// Fields lists the parts fields followed by Body.
func (v Variant) Fields() []Field {
	out := make([]Field, 0, len(v.Parts)+1)
	for i, p := range v.Parts {
		out = append(out, Field{Name: "Part" + strconv.Itoa(i), Param: "part" + strconv.Itoa(i), Type: p})
	}
	return append(out, Field{Name: "Body", Param: "body", Type: v.Body})
}

// DocContentType is the media type documented for the response body.
func (v Variant) DocContentType() catalog.MIME {
	if v.ContentType != "" {
		return v.ContentType
	}
	switch v.Serialize {
	case SerializeJSON:
		return catalog.MIMEJSON
	case SerializeRaw:
		if v.Body == "string" {
			return catalog.MIMETextUTF8
		}
	}
	return catalog.MIMEOctetStream
}

// Contract is the generated sum type of one handler.
type Contract struct {
	Handler   string
	Interface string
	Marker    string
	// ConstructorPrefix precedes the status ident in constructor names.
	ConstructorPrefix string
	Variants          []Variant
}

// Synthesize builds the contract of handler from its route declaration.
// Variants keep declaration order.
func Synthesize(handler string, route *decl.Route, opts Options) (*Contract, error) {
	exported := isExported(handler)
	upper := upperFirst(handler)
	c := &Contract{
		Handler:   handler,
		Interface: handler + "Responses",
		Marker:    "is" + upper + "Responses",
	}
	if exported {
		c.ConstructorPrefix = "New" + handler
	} else {
		c.ConstructorPrefix = "new" + upper
	}
	if len(route.Responses) == 0 {
		return nil, diag.Errorf(route.Pos, diag.MissingField, "at least one response is required")
	}
	seen := map[int]bool{}
	for _, r := range route.Responses {
		if seen[r.Status.Code] {
			return nil, diag.Errorf(r.Pos, diag.DuplicateStatus, "duplicated status %d", r.Status.Code)
		}
		seen[r.Status.Code] = true
		v := Variant{
			Status:      r.Status,
			TypeName:    handler + r.Status.Ident,
			Into:        handler + "Into" + r.Status.Ident,
			Body:        r.Body.Text,
			ContentType: r.ContentType,
			Description: r.Description,
			Headers:     r.Headers,
			Trace:       r.Trace,
		}
		v.Constructor = c.ConstructorPrefix + r.Status.Ident
		for _, p := range r.Parts {
			v.Parts = append(v.Parts, p.Text)
		}
		switch r.Serializer.Kind {
		case decl.SerializerNone:
			v.Serialize = SerializeRaw
		case decl.SerializerCustom:
			v.Serialize = SerializeCustom
			v.SerializerExpr = r.Serializer.Expr.Text
		default:
			if opts.RawByDefault {
				v.Serialize = SerializeRaw
			}
		}
		if v.Serialize == SerializeRaw && !rawWritable(r.Body.Expr) {
			return nil, diag.Errorf(r.Body.Pos, diag.ReturnType,
				"body %s of status %d cannot be written without a serializer", r.Body.Text, r.Status.Code)
		}
		c.Variants = append(c.Variants, v)
	}
	return c, nil
}

// rawWritable reports whether a body type may be written raw. Only type
// expressions that can never be a string, a byte slice or a reader are
// rejected; named types are checked by the generated code instead.
func rawWritable(e ast.Expr) bool {
	switch x := e.(type) {
	case nil:
		return true
	case *ast.ParenExpr:
		return rawWritable(x.X)
	case *ast.Ident:
		return !nonRawBuiltins[x.Name]
	case *ast.StarExpr:
		id, ok := x.X.(*ast.Ident)
		return !ok || !(id.Name == "string" || nonRawBuiltins[id.Name] || predeclared[id.Name])
	case *ast.ArrayType:
		if x.Len != nil {
			return false
		}
		id, ok := x.Elt.(*ast.Ident)
		return ok && (id.Name == "byte" || id.Name == "uint8")
	case *ast.MapType, *ast.ChanType, *ast.FuncType, *ast.StructType:
		return false
	}
	return true
}

var nonRawBuiltins = map[string]bool{
	"bool": true, "error": true, "uintptr": true, "rune": true, "byte": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

var predeclared = map[string]bool{"any": true, "comparable": true}

// Variant returns the variant for a status code.
func (c *Contract) Variant(code int) *Variant {
	for i := range c.Variants {
		if c.Variants[i].Status.Code == code {
			return &c.Variants[i]
		}
	}
	return nil
}

// Statuses lists the declared codes in order.
func (c *Contract) Statuses() []int {
	out := make([]int, len(c.Variants))
	for i, v := range c.Variants {
		out[i] = v.Status.Code
	}
	return out
}

// Names lists every identifier the contract declares.
func (c *Contract) Names() []string {
	out := []string{c.Interface}
	for _, v := range c.Variants {
		out = append(out, v.TypeName, v.Constructor, v.Into)
	}
	return out
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
