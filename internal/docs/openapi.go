package docs

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/autoroute/internal/decl"
)

// OpenAPIVersion is the version written into skeleton documents.
const OpenAPIVersion = "3.0.3"

// Skeleton builds a static OpenAPI document from entries. Named Go types
// become object placeholders under components/schemas; the runtime Router
// produces the same document with schemas derived from the real types.
func Skeleton(entries []*Entry, info openapi3.Info) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = "API"
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}
	doc := &openapi3.T{
		OpenAPI:    OpenAPIVersion,
		Info:       &info,
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	sg := &schemaGen{components: doc.Components.Schemas}

	for _, e := range entries {
		op, err := operation(e, sg)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", e.Method, e.Path, err)
		}
		p := OpenAPIPath(e.Path)
		item := doc.Paths[p]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[p] = item
		}
		if item.GetOperation(e.Method) != nil {
			return nil, fmt.Errorf("duplicate route %s %s", e.Method, p)
		}
		item.SetOperation(e.Method, op)
	}
	if len(doc.Components.Schemas) == 0 {
		doc.Components = nil
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

var wildcardRe = regexp.MustCompile(`\{([^{}$]+)\.\.\.\}`)

// OpenAPIPath converts a ServeMux pattern path to an OpenAPI template:
// {name...} becomes {name} and a trailing {$} is dropped.
func OpenAPIPath(p string) string {
	p = strings.TrimSuffix(p, "{$}")
	return wildcardRe.ReplaceAllString(p, "{$1}")
}

func operation(e *Entry, sg *schemaGen) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.OperationID = e.Handler
	op.Tags = e.Tags

	pathType := ""
	for _, p := range e.Parameters {
		if p.In == openapi3.ParameterInPath {
			pathType = p.Type
		}
	}
	for _, name := range decl.PathParams(e.Path) {
		param := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
		if pathType != "" {
			param.Description = "bound into " + pathType
		}
		op.AddParameter(param)
	}
	for _, p := range e.Parameters {
		if p.In != openapi3.ParameterInQuery {
			continue
		}
		ref, err := sg.schemaFor(p.Type)
		if err != nil {
			return nil, err
		}
		param := openapi3.NewQueryParameter(p.Name)
		param.Schema = ref
		op.AddParameter(param)
	}

	if b := e.RequestBody; b != nil {
		ref, err := sg.schemaFor(b.Type)
		if err != nil {
			return nil, err
		}
		body := openapi3.NewRequestBody().WithRequired(true).WithSchemaRef(ref, b.ContentTypes)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	op.Responses = openapi3.Responses{}
	for _, r := range e.Responses {
		ref, err := sg.schemaFor(r.Type)
		if err != nil {
			return nil, err
		}
		resp := openapi3.NewResponse().
			WithDescription(r.Description).
			WithContent(openapi3.NewContentWithSchemaRef(ref, []string{r.ContentType}))
		if len(r.Headers) > 0 {
			resp.Headers = openapi3.Headers{}
			for _, h := range r.Headers {
				hdr := &openapi3.Header{Parameter: openapi3.Parameter{
					Description: h.Description,
					Schema:      openapi3.NewStringSchema().NewRef(),
				}}
				resp.Headers[h.Name] = &openapi3.HeaderRef{Value: hdr}
			}
		}
		op.AddResponse(r.Status, resp)
	}
	return op, nil
}

type schemaGen struct {
	components openapi3.Schemas
}

func (g *schemaGen) schemaFor(typ string) (*openapi3.SchemaRef, error) {
	e, err := parser.ParseExpr(typ)
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", typ, err)
	}
	return g.schemaOf(e), nil
}

var builtinSchemas = map[string]func() *openapi3.Schema{
	"string":  openapi3.NewStringSchema,
	"bool":    openapi3.NewBoolSchema,
	"int":     openapi3.NewIntegerSchema,
	"int8":    openapi3.NewInt32Schema,
	"int16":   openapi3.NewInt32Schema,
	"int32":   openapi3.NewInt32Schema,
	"rune":    openapi3.NewInt32Schema,
	"int64":   openapi3.NewInt64Schema,
	"uint":    func() *openapi3.Schema { return openapi3.NewIntegerSchema().WithMin(0) },
	"uint8":   func() *openapi3.Schema { return openapi3.NewInt32Schema().WithMin(0) },
	"byte":    func() *openapi3.Schema { return openapi3.NewInt32Schema().WithMin(0) },
	"uint16":  func() *openapi3.Schema { return openapi3.NewInt32Schema().WithMin(0) },
	"uint32":  func() *openapi3.Schema { return openapi3.NewInt64Schema().WithMin(0) },
	"uint64":  func() *openapi3.Schema { return openapi3.NewInt64Schema().WithMin(0) },
	"float32": func() *openapi3.Schema { return openapi3.NewFloat64Schema().WithFormat("float") },
	"float64": func() *openapi3.Schema { return openapi3.NewFloat64Schema().WithFormat("double") },
	"any":     openapi3.NewSchema,
	"error":   openapi3.NewStringSchema,
}

// wellKnown maps qualified standard and runtime types that do not serialize
// as plain objects.
var wellKnown = map[string]func() *openapi3.Schema{
	"time.Time":         openapi3.NewDateTimeSchema,
	"time.Duration":     openapi3.NewInt64Schema,
	"json.RawMessage":   openapi3.NewSchema,
	"io.Reader":         binarySchema,
	"io.ReadCloser":     binarySchema,
	"autoroute.RawBody": binarySchema,
}

func binarySchema() *openapi3.Schema { return openapi3.NewStringSchema().WithFormat("binary") }

func (g *schemaGen) schemaOf(e ast.Expr) *openapi3.SchemaRef {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return g.schemaOf(x.X)
	case *ast.StarExpr:
		return g.schemaOf(x.X)
	case *ast.Ident:
		if mk, ok := builtinSchemas[x.Name]; ok {
			return mk().NewRef()
		}
		return g.component(x.Name)
	case *ast.SelectorExpr:
		name := exprText(x)
		if mk, ok := wellKnown[name]; ok {
			return mk().NewRef()
		}
		return g.component(name)
	case *ast.IndexExpr, *ast.IndexListExpr:
		return g.component(exprText(x))
	case *ast.ArrayType:
		if id, ok := x.Elt.(*ast.Ident); ok && (id.Name == "byte" || id.Name == "uint8") {
			return binarySchema().NewRef()
		}
		s := openapi3.NewArraySchema()
		s.Items = g.schemaOf(x.Elt)
		return s.NewRef()
	case *ast.MapType:
		s := openapi3.NewObjectSchema()
		s.AdditionalProperties = openapi3.AdditionalProperties{Schema: g.schemaOf(x.Value)}
		return s.NewRef()
	case *ast.StructType:
		return openapi3.NewObjectSchema().NewRef()
	}
	return openapi3.NewSchema().NewRef()
}

var componentNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// component registers an object placeholder for a named type and returns a
// resolved reference to it.
func (g *schemaGen) component(name string) *openapi3.SchemaRef {
	key := strings.Trim(componentNameRe.ReplaceAllString(name, "_"), "_")
	s, ok := g.components[key]
	if !ok {
		obj := openapi3.NewObjectSchema()
		obj.Description = name
		s = obj.NewRef()
		g.components[key] = s
	}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + key, Value: s.Value}
}

// exprText prints a type expression without spaces, which is enough for
// the selector and instantiation forms passed to it.
func exprText(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.SelectorExpr:
		return exprText(x.X) + "." + x.Sel.Name
	case *ast.StarExpr:
		return "*" + exprText(x.X)
	case *ast.ArrayType:
		return "[]" + exprText(x.Elt)
	case *ast.IndexExpr:
		return exprText(x.X) + "[" + exprText(x.Index) + "]"
	case *ast.IndexListExpr:
		args := make([]string, len(x.Indices))
		for i, a := range x.Indices {
			args[i] = exprText(a)
		}
		return exprText(x.X) + "[" + strings.Join(args, ",") + "]"
	case *ast.MapType:
		return "map[" + exprText(x.Key) + "]" + exprText(x.Value)
	}
	return "_"
}

// ComponentNames lists the placeholder schemas of doc in order.
func ComponentNames(doc *openapi3.T) []string {
	if doc.Components == nil {
		return nil
	}
	out := make([]string, 0, len(doc.Components.Schemas))
	for k := range doc.Components.Schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
