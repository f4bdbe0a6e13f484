package goemitter

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/mark3labs/autoroute/internal/contract"
	"github.com/mark3labs/autoroute/internal/extract"
	"github.com/mark3labs/autoroute/internal/route"
	"github.com/mark3labs/autoroute/internal/trace"
)

type fileData struct {
	Header     string
	Package    string
	Runtime    string
	Imports    []string
	Handlers   []handlerData
	Assertions []string
}

type handlerData struct {
	Name      string
	Serve     string
	InfoVar   string
	DocFunc   string
	RouteFunc string
	Method    string
	Path      string
	Contract  *contract.Contract
	Variants  []variantData
	Sites     []siteData
	NeedCtx   bool
	CallArgs  string
	Trace     *trace.Plan
	// TraceBody is set when at least one exit prints its body.
	TraceBody bool
	Tags      string
	Params    string
	Body      string
}

type variantData struct {
	contract.Variant
	Fields     []contract.Field
	StatusText string
	Respond    string
	Params     string
	Args       string
	Init       string
	// Doc fields.
	Description string
	ContentType string
	Schema      string
	Headers     string
}

type siteData struct {
	Local  string
	Decl   string
	Method string
}

var fileTmpl = template.Must(template.New("file").Funcs(template.FuncMap{"quote": strconv.Quote}).Parse(fileTemplate))

func newFileData(pkg *route.Package) (*fileData, error) {
	rt, importLines := runtimeImport(pkg.Imports, pkg.Runtime)
	d := &fileData{Header: Header, Package: pkg.Name, Runtime: rt, Imports: importLines}
	seen := map[string]bool{}
	assert := func(s string) {
		if !seen[s] {
			seen[s] = true
			d.Assertions = append(d.Assertions, s)
		}
	}
	for _, h := range pkg.Handlers {
		hd, err := newHandlerData(h, rt)
		if err != nil {
			return nil, err
		}
		for _, s := range h.Func.Sites {
			iface := "PartsExtractor"
			if s.Role == extract.RolePayload {
				iface = "BodyExtractor"
			}
			assert(fmt.Sprintf("_ %s.%s = (*%s)(nil)", rt, iface, s.Type))
		}
		for _, v := range h.Contract.Variants {
			for _, p := range v.Parts {
				assert(fmt.Sprintf("_ %s.ResponsePart = *new(%s)", rt, p))
			}
			if v.Serialize == contract.SerializeRaw && !plainRaw[v.Body] {
				assert(fmt.Sprintf("_ = %s.MustRawBody[%s]()", rt, v.Body))
			}
		}
		d.Handlers = append(d.Handlers, *hd)
	}
	return d, nil
}

// plainRaw lists bodies RawResponse always accepts.
var plainRaw = map[string]bool{"string": true, "[]byte": true, "[]uint8": true, "any": true}

// runtimeImport renders the import lines of the generated file with the
// runtime package bound to rt, picking a name when rt is empty. Every import
// of the handler files is listed; unused ones are removed when formatting.
func runtimeImport(imps map[string]string, rt string) (string, []string) {
	if rt == "" {
		rt = extract.RuntimeName(imps)
	}
	all := map[string]string{}
	for name, p := range imps {
		if name == "_" || name == "." {
			continue
		}
		all[name] = p
	}
	all[rt] = extract.RuntimePath
	for _, std := range []string{"fmt", "net/http", "slices"} {
		if _, taken := all[path.Base(std)]; !taken {
			all[path.Base(std)] = std
		}
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		p := all[name]
		if name == path.Base(p) {
			lines = append(lines, strconv.Quote(p))
		} else {
			lines = append(lines, name+" "+strconv.Quote(p))
		}
	}
	return rt, lines
}

func newHandlerData(h *route.Handler, rt string) (*handlerData, error) {
	upper := upperFirst(h.Name)
	hd := &handlerData{
		Name:      h.Name,
		Serve:     "serve" + upper,
		InfoVar:   h.Name + "RouteInfo",
		DocFunc:   h.Name + "Doc",
		RouteFunc: h.Name + "Route",
		Method:    string(h.Route.Method),
		Path:      h.Route.Path,
		Contract:  h.Contract,
		NeedCtx:   h.Func.Context || h.Trace != nil,
		Trace:     h.Trace,
	}

	var args []string
	if h.Func.Context {
		args = append(args, "ctx")
	}
	for _, s := range h.Func.Sites {
		sd := siteData{Local: s.Local, Method: "ExtractParts"}
		if s.Role == extract.RolePayload {
			sd.Method = "ExtractBody"
		}
		if s.Pointer {
			sd.Decl = fmt.Sprintf("%s := new(%s)", s.Local, s.Type)
		} else {
			sd.Decl = fmt.Sprintf("var %s %s", s.Local, s.Type)
		}
		hd.Sites = append(hd.Sites, sd)
		args = append(args, s.Local)
	}
	hd.CallArgs = strings.Join(args, ", ")
	if h.Trace != nil {
		for _, e := range h.Trace.Exits {
			hd.TraceBody = hd.TraceBody || e.Response
		}
	}

	if len(h.Doc.Tags) > 0 {
		quoted := make([]string, len(h.Doc.Tags))
		for i, t := range h.Doc.Tags {
			quoted[i] = strconv.Quote(t)
		}
		hd.Tags = "[]string{" + strings.Join(quoted, ", ") + "}"
	}
	var params []string
	for _, p := range h.Doc.Parameters {
		in := p.In
		if in == "" {
			in = "query"
		}
		params = append(params, fmt.Sprintf("%s.ParamsOf[%s](%q)", rt, p.Type, in))
	}
	switch len(params) {
	case 0:
	case 1:
		hd.Params = params[0]
	default:
		hd.Params = "slices.Concat(" + strings.Join(params, ", ") + ")"
	}
	if b := h.Doc.RequestBody; b != nil {
		schema := fmt.Sprintf("%s.SchemaOf[%s]()", rt, b.Type)
		if b.Raw {
			schema = rt + ".RawSchema()"
		}
		cts := make([]string, len(b.ContentTypes))
		for i, ct := range b.ContentTypes {
			cts[i] = strconv.Quote(ct)
		}
		hd.Body = fmt.Sprintf("&%s.BodyDoc{ContentTypes: []string{%s}, Schema: %s}", rt, strings.Join(cts, ", "), schema)
	}

	for i, v := range h.Contract.Variants {
		vd := newVariantData(v, rt)
		doc := h.Doc.Responses[i]
		vd.Description = doc.Description
		vd.ContentType = doc.ContentType
		var hs []string
		for _, hdr := range doc.Headers {
			hs = append(hs, fmt.Sprintf("{Name: %q, Description: %q}", hdr.Name, hdr.Description))
		}
		vd.Headers = strings.Join(hs, ", ")
		hd.Variants = append(hd.Variants, vd)
	}
	return hd, nil
}

func newVariantData(v contract.Variant, rt string) variantData {
	vd := variantData{Variant: v, Fields: v.Fields(), StatusText: v.Status.String()}
	params := make([]string, len(vd.Fields))
	args := make([]string, len(vd.Fields))
	init := make([]string, len(vd.Fields))
	for i, f := range vd.Fields {
		params[i] = f.Param + " " + f.Type
		args[i] = f.Param
		init[i] = f.Name + ": " + f.Param
	}
	vd.Params = strings.Join(params, ", ")
	vd.Args = strings.Join(args, ", ")
	vd.Init = strings.Join(init, ", ")

	var parts strings.Builder
	for _, f := range vd.Fields[:len(vd.Fields)-1] {
		parts.WriteString(", v." + f.Name)
	}
	ct := `""`
	if v.ContentType != "" {
		ct = strconv.Quote(string(v.ContentType))
	}
	code := v.Status.Code
	switch v.Serialize {
	case contract.SerializeRaw:
		vd.Respond = fmt.Sprintf("%s.RawResponse(%d, %s, v.Body%s)", rt, code, ct, parts.String())
	case contract.SerializeCustom:
		fn := v.SerializerExpr
		if strings.HasPrefix(fn, "func") {
			fn = "(" + fn + ")"
		}
		vd.Respond = fmt.Sprintf("%s.SerializedResponse(%d, %s, func() ([]byte, error) { return %s(v.Body) }%s)", rt, code, ct, fn, parts.String())
	default:
		vd.Respond = fmt.Sprintf("%s.JSONResponse(%d, %s, v.Body%s)", rt, code, ct, parts.String())
	}

	if v.Serialize == contract.SerializeRaw && v.Body != "string" {
		vd.Schema = rt + ".RawSchema()"
	} else {
		vd.Schema = fmt.Sprintf("%s.SchemaOf[%s]()", rt, v.Body)
	}
	return vd
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

const fileTemplate = `{{.Header}}

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)
{{- $rt := .Runtime}}
{{range $h := .Handlers}}
// {{$h.Contract.Interface}} is the closed set of responses of {{$h.Name}}.
type {{$h.Contract.Interface}} interface {
	{{$rt}}.Responder
	{{$h.Contract.Marker}}()
}
{{range $v := $h.Variants}}
// {{$v.TypeName}} is the {{$v.StatusText}} response of {{$h.Name}}.
type {{$v.TypeName}} struct {
{{- range $v.Fields}}
	{{.Name}} {{.Type}}
{{- end}}
}

func ({{$v.TypeName}}) {{$h.Contract.Marker}}() {}

func (v {{$v.TypeName}}) Respond() (*{{$rt}}.Response, error) {
	return {{$v.Respond}}
}

// {{$v.Constructor}} builds the {{$v.StatusText}} response of {{$h.Name}}.
func {{$v.Constructor}}({{$v.Params}}) {{$v.TypeName}} {
	return {{$v.TypeName}}{ {{- $v.Init -}} }
}

// {{$v.Into}} builds the {{$v.StatusText}} response of {{$h.Name}} as {{$h.Contract.Interface}}.
func {{$v.Into}}({{$v.Params}}) {{$h.Contract.Interface}} {
	return {{$v.Constructor}}({{$v.Args}})
}
{{end}}
func {{$h.Serve}}(w http.ResponseWriter, r *http.Request) {
{{- if $h.NeedCtx}}
	ctx := r.Context()
{{- end}}
{{- with $h.Trace}}
	{{$rt}}.Trace(ctx, {{quote .Entry}})
{{- end}}
{{- range $h.Sites}}
	{{.Decl}}
	if err := {{.Local}}.{{.Method}}(r); err != nil {
		{{$rt}}.Reject(w, err)
		return
	}
{{- end}}
{{- with $h.Trace}}{{range .Values}}
	{{$rt}}.TraceValue(ctx, {{quote .Label}}, {{.Expr}})
{{- end}}{{end}}
	res := {{$h.Name}}({{$h.CallArgs}})
{{- with $h.Trace}}
	switch {{if $h.TraceBody}}v := {{end}}res.(type) {
{{- range .Exits}}
	case {{.TypeName}}:
		{{$rt}}.Trace(ctx, {{quote .Message}})
{{- if .Response}}
		{{$rt}}.TraceValue(ctx, "Response", v.Body)
{{- end}}
	case *{{.TypeName}}:
		{{$rt}}.Trace(ctx, {{quote .Message}})
{{- if .Response}}
		{{$rt}}.TraceValue(ctx, "Response", v.Body)
{{- end}}
{{- end}}
	}
{{- end}}
	{{$rt}}.Write(w, res)
}

// {{$h.InfoVar}} is the route of {{$h.Name}}.
var {{$h.InfoVar}} = {{$rt}}.NewRouteInfo({{quote $h.Method}}, {{quote $h.Path}})

// {{$h.DocFunc}} documents {{$h.Name}}.
func {{$h.DocFunc}}() {{$rt}}.Doc {
	return {{$rt}}.Doc{
		OperationID: {{quote $h.Name}},
		Method:      {{quote $h.Method}},
		Path:        {{quote $h.Path}},
{{- if $h.Tags}}
		Tags:        {{$h.Tags}},
{{- end}}
{{- if $h.Params}}
		Parameters:  {{$h.Params}},
{{- end}}
{{- if $h.Body}}
		RequestBody: {{$h.Body}},
{{- end}}
		Responses: []{{$rt}}.ResponseDoc{
{{- range $h.Variants}}
			{Status: {{.Status.Code}}, Description: {{quote .Description}}, ContentType: {{quote .ContentType}}, Schema: {{.Schema}}{{if .Headers}}, Headers: []{{$rt}}.HeaderDoc{ {{- .Headers -}} }{{end}}},
{{- end}}
		},
	}
}

// {{$h.RouteFunc}} bundles the adapter, route and docs of {{$h.Name}}.
func {{$h.RouteFunc}}() {{$rt}}.Route {
	return {{$rt}}.NewRoute({{quote $h.Name}}, {{$h.InfoVar}}, {{$h.Serve}}, {{$h.DocFunc}}())
}
{{end}}
// RouteInfoOf returns the route of the handler called name.
func RouteInfoOf(name string) ({{$rt}}.RouteInfo, bool) {
	switch name {
{{- range .Handlers}}
	case {{quote .Name}}:
		return {{.InfoVar}}, true
{{- end}}
	}
	return {{$rt}}.RouteInfo{}, false
}

// RoutesInfo returns the routes of the named handlers in order.
func RoutesInfo(names ...string) ([]{{$rt}}.RouteInfo, error) {
	out := make([]{{$rt}}.RouteInfo, 0, len(names))
	for _, name := range names {
		info, ok := RouteInfoOf(name)
		if !ok {
			return nil, fmt.Errorf("no route is declared for %q", name)
		}
		out = append(out, info)
	}
	return out, nil
}
{{- if .Assertions}}

var (
{{- range .Assertions}}
	{{.}}
{{- end}}
)
{{- end}}
`
