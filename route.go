package autoroute

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// RouteInfo is the method and path of a route.
type RouteInfo struct {
	method string
	path   string
}

// NewRouteInfo returns the info for method and path. The path uses ServeMux
// wildcard syntax.
func NewRouteInfo(method, path string) RouteInfo {
	return RouteInfo{method: strings.ToUpper(method), path: path}
}

func (i RouteInfo) Method() string { return i.method }
func (i RouteInfo) Path() string   { return i.path }

// Pattern is the ServeMux pattern, e.g. "GET /items/{id}".
func (i RouteInfo) Pattern() string { return i.method + " " + i.path }

func (i RouteInfo) String() string { return i.Pattern() }

// WithPrefix returns the info with prefix prepended to the path.
func (i RouteInfo) WithPrefix(prefix string) RouteInfo {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return i
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	p := i.path
	if p == "/" {
		p = "/{$}"
	}
	return RouteInfo{method: i.method, path: prefix + p}
}

// Route bundles a generated adapter with its info and documentation.
type Route struct {
	name    string
	info    RouteInfo
	handler http.Handler
	doc     Doc
}

// NewRoute is called by generated code.
func NewRoute(name string, info RouteInfo, h http.HandlerFunc, doc Doc) Route {
	return Route{name: name, info: info, handler: h, doc: doc}
}

func (r Route) Name() string          { return r.name }
func (r Route) Info() RouteInfo       { return r.info }
func (r Route) Handler() http.Handler { return r.handler }

// Doc returns the documentation with the method and path of Info.
func (r Route) Doc() Doc {
	d := r.doc
	d.Method = r.info.Method()
	d.Path = r.info.Path()
	return d
}

// WithPrefix mounts the route below prefix.
func (r Route) WithPrefix(prefix string) Route {
	r.info = r.info.WithPrefix(prefix)
	return r
}

// SchemaFunc builds a schema, adding named component schemas to components.
type SchemaFunc func(components openapi3.Schemas) (*openapi3.SchemaRef, error)

// SchemaOf derives the schema of T from its Go type. Interface types yield
// an empty schema.
func SchemaOf[T any]() SchemaFunc {
	t := reflect.TypeFor[T]()
	if t == reflect.TypeFor[RawBody]() {
		return RawSchema()
	}
	return schemaOfType(t)
}

// RawSchema documents a binary body.
func RawSchema() SchemaFunc {
	return func(openapi3.Schemas) (*openapi3.SchemaRef, error) {
		return openapi3.NewStringSchema().WithFormat("binary").NewRef(), nil
	}
}

// ParamDoc documents one request parameter. An empty path parameter name
// stands for the single wildcard of the route.
type ParamDoc struct {
	Name     string
	In       string
	Required bool
	Schema   SchemaFunc
}

// ParamsOf documents the fields of T tagged with in ("path" or "query"). A
// non-struct T documents the single path wildcard.
func ParamsOf[T any](in string) []ParamDoc {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if !isBindStruct(t) {
		return []ParamDoc{{In: in, Required: true, Schema: schemaOfType(t)}}
	}
	var out []ParamDoc
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := tagName(f, in)
		if name == "" || !f.IsExported() {
			continue
		}
		ft := f.Type
		required := in == openapi3.ParameterInPath
		switch ft.Kind() {
		case reflect.Pointer:
			ft = ft.Elem()
		case reflect.Slice:
		default:
			required = true
		}
		out = append(out, ParamDoc{Name: name, In: in, Required: required, Schema: schemaOfType(ft)})
	}
	return out
}

func schemaOfType(t reflect.Type) SchemaFunc {
	return func(components openapi3.Schemas) (*openapi3.SchemaRef, error) {
		if t.Kind() == reflect.Interface {
			return openapi3.NewSchemaRef("", &openapi3.Schema{}), nil
		}
		// Untagged exported fields are written by encoding/json, so they are
		// documented too.
		ref, err := openapi3gen.NewSchemaRefForValue(reflect.Zero(t).Interface(), components, openapi3gen.UseAllExportedFields())
		if err != nil {
			return nil, fmt.Errorf("autoroute: schema of %s: %w", t, err)
		}
		return ref, nil
	}
}

// BodyDoc documents the request body.
type BodyDoc struct {
	ContentTypes []string
	Schema       SchemaFunc
}

// HeaderDoc documents a response header.
type HeaderDoc struct {
	Name        string
	Description string
}

// ResponseDoc documents one response variant.
type ResponseDoc struct {
	Status      int
	Description string
	ContentType string
	Schema      SchemaFunc
	Headers     []HeaderDoc
}

// Doc is the documentation of a route, built by generated code from the
// same declaration as its response contract.
type Doc struct {
	OperationID string
	Method      string
	Path        string
	Tags        []string
	Parameters  []ParamDoc
	RequestBody *BodyDoc
	Responses   []ResponseDoc
}

// Operation renders the doc as an OpenAPI operation. Path wildcards without
// a documented parameter are added as required strings.
func (d Doc) Operation(components openapi3.Schemas) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.OperationID = d.OperationID
	op.Tags = append([]string(nil), d.Tags...)
	op.Responses = openapi3.Responses{}

	wildcards := Wildcards(d.Path)
	documented := map[string]bool{}
	for _, p := range d.Parameters {
		name := p.Name
		if name == "" && p.In == openapi3.ParameterInPath {
			if len(wildcards) != 1 {
				return nil, fmt.Errorf("autoroute: %s: path parameter needs exactly one wildcard in %q", d.OperationID, d.Path)
			}
			name = wildcards[0]
		}
		schema, err := resolveSchema(p.Schema, components)
		if err != nil {
			return nil, err
		}
		param := &openapi3.Parameter{Name: name, In: p.In, Required: p.Required || p.In == openapi3.ParameterInPath, Schema: schema}
		if p.In == openapi3.ParameterInPath {
			documented[name] = true
		}
		op.AddParameter(param)
	}
	for _, w := range wildcards {
		if !documented[w] {
			op.AddParameter(openapi3.NewPathParameter(w).WithSchema(openapi3.NewStringSchema()))
		}
	}

	if d.RequestBody != nil {
		schema, err := resolveSchema(d.RequestBody.Schema, components)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithSchemaRef(schema, d.RequestBody.ContentTypes),
		}
	}

	for _, r := range d.Responses {
		desc := r.Description
		if desc == "" {
			desc = http.StatusText(r.Status)
		}
		res := openapi3.NewResponse().WithDescription(desc)
		if r.Schema != nil {
			schema, err := r.Schema(components)
			if err != nil {
				return nil, err
			}
			ct := r.ContentType
			if ct == "" {
				ct = ContentTypeJSON
			}
			res.Content = openapi3.NewContentWithSchemaRef(schema, []string{ct})
		}
		if len(r.Headers) > 0 {
			res.Headers = openapi3.Headers{}
			for _, h := range r.Headers {
				res.Headers[h.Name] = &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
					Description: h.Description,
					Schema:      openapi3.NewStringSchema().NewRef(),
				}}}
			}
		}
		op.AddResponse(r.Status, res)
	}
	return op, nil
}

func resolveSchema(f SchemaFunc, components openapi3.Schemas) (*openapi3.SchemaRef, error) {
	if f == nil {
		return openapi3.NewStringSchema().NewRef(), nil
	}
	return f(components)
}
