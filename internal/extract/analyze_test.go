package extract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/diag"
)

const header = `package p

import (
	"context"

	ar "github.com/mark3labs/autoroute"
	"github.com/mark3labs/autoroute"
	"example.com/ext"
)

`

func analyze(t *testing.T, reg *Registry, fn string, attrs ...string) (*Func, error) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "h.go", header+fn, 0)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	var fd *ast.FuncDecl
	for _, d := range f.Decls {
		if x, ok := d.(*ast.FuncDecl); ok {
			fd = x
			break
		}
	}
	if fd == nil {
		t.Fatalf("no func in %q", fn)
	}
	m := map[string]*decl.ExtractorAttr{}
	for _, a := range attrs {
		attr, err := decl.ParseExtractor(decl.SourceString(a, token.Position{Filename: "h.go", Line: 1, Column: 1}))
		if err != nil {
			t.Fatalf("parse attr %q: %v", a, err)
		}
		m[attr.Param] = attr
	}
	return NewAnalyzer(fset, reg).Analyze(fd.Type, ImportsOf(f), m)
}

func TestAnalyze_KnownKinds(t *testing.T) {
	t.Parallel()

	fn, err := analyze(t, nil, `func H(ctx context.Context, p autoroute.Path[ItemParams], q *ar.Query[Filter], body autoroute.Json[Item]) R { return nil }`)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !fn.Context {
		t.Errorf("context parameter not detected")
	}
	if len(fn.Sites) != 3 {
		t.Fatalf("sites: %d", len(fn.Sites))
	}

	p := fn.Sites[0]
	if p.Index != 1 || p.Bound != "p" || p.Label() != "Path" || p.Inner != "ItemParams" || p.Role != RoleMetadata || !p.IntoParams || !p.Trace {
		t.Errorf("path site: %+v", p)
	}
	q := fn.Sites[1]
	if !q.Pointer || q.Type != "ar.Query[Filter]" || q.Label() != "Query" || q.ImportPath != RuntimePath {
		t.Errorf("query site: %+v", q)
	}
	b := fn.Sites[2]
	if b.Role != RolePayload || len(b.ContentTypes) != 1 || b.ContentTypes[0] != catalog.MIMEJSON || b.Inner != "Item" {
		t.Errorf("body site: %+v", b)
	}
	if fn.Payload() == nil || fn.Payload().Name != "body" {
		t.Errorf("payload lookup: %+v", fn.Payload())
	}
}

func TestAnalyze_UnknownKinds(t *testing.T) {
	t.Parallel()

	fn, err := analyze(t, nil,
		`func H(h ext.Header, c Claims, q ext.Filter, f ext.Form) R { return nil }`,
		`q into_params=true`,
		`f content_type=APPLICATION_WWW_FORM_URLENCODED`,
	)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	h, c, q, f := fn.Sites[0], fn.Sites[1], fn.Sites[2], fn.Sites[3]
	if h.Known() || h.Trace || h.IntoParams || h.Role != RoleMetadata || h.Label() != "Header" {
		t.Errorf("header site: %+v", h)
	}
	if c.Known() || c.Trace || c.ImportPath != "" || c.Inner != "Claims" {
		t.Errorf("claims site: %+v", c)
	}
	if !q.IntoParams || !q.Trace || q.Role != RoleMetadata {
		t.Errorf("into_params site: %+v", q)
	}
	if f.Role != RolePayload || !f.Trace || len(f.ContentTypes) != 1 || f.ContentTypes[0] != "application/x-www-form-urlencoded" {
		t.Errorf("content_type site: %+v", f)
	}
}

func TestAnalyze_TraceOverride(t *testing.T) {
	t.Parallel()

	fn, err := analyze(t, nil, `func H(p autoroute.Path[X], c Claims) R { return nil }`, `p trace=false`, `c trace=true`)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if fn.Sites[0].Trace || !fn.Sites[1].Trace {
		t.Fatalf("trace flags: %v %v", fn.Sites[0].Trace, fn.Sites[1].Trace)
	}
}

func TestAnalyze_BindPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fn         string
		attr       string
		wantBound  string
		wantAccess string
	}{
		{`func H(q autoroute.Query[F]) R { return nil }`, `q bind=autoroute.Query{filter}`, "filter", ".Value"},
		{`func H(q autoroute.Query[F]) R { return nil }`, `q bind=autoroute.Query{Value: filter}`, "filter", ".Value"},
		{`func H(q autoroute.Query[F]) R { return nil }`, `q bind=&x`, "x", ""},
		{`func H(q autoroute.Query[F]) R { return nil }`, `q bind=(x)`, "x", ""},
		{`func H(b autoroute.Body) R { return nil }`, `b bind=autoroute.Body{raw}`, "raw", ".Bytes"},
		{`func H(c Claims) R { return nil }`, `c bind=Claims{Subject: sub}`, "sub", ".Subject"},
	}
	for _, tt := range tests {
		fn, err := analyze(t, nil, tt.fn, tt.attr)
		if err != nil {
			t.Errorf("%s: %v", tt.attr, err)
			continue
		}
		s := fn.Sites[0]
		if s.Bound != tt.wantBound || s.Access != tt.wantAccess {
			t.Errorf("%s: bound=%q access=%q", tt.attr, s.Bound, s.Access)
		}
	}
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Kind{Name: "Form", ImportPath: "example.com/ext", Role: RolePayload}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name  string
		fn    string
		attrs []string
		code  diag.Code
		msg   string
	}{
		{"wildcard", `func H(_ autoroute.Query[F]) R { return nil }`, nil, diag.ExtractorPattern, "unable to determine extractor variable"},
		{"unnamed", `func H(autoroute.Query[F]) R { return nil }`, nil, diag.ExtractorPattern, "unable to determine extractor variable"},
		{"wildcard field", `func H(q autoroute.Query[F]) R { return nil }`, []string{`q bind=autoroute.Query{_}`}, diag.ExtractorPattern, "unable to determine extractor variable"},
		{"two fields", `func H(q autoroute.Query[F]) R { return nil }`, []string{`q bind=autoroute.Query{a, b}`}, diag.ExtractorPattern, "unable to determine extractor variable"},
		{"nested", `func H(q autoroute.Query[F]) R { return nil }`, []string{`q bind=autoroute.Query{F{x}}`}, diag.ExtractorPattern, "unable to determine extractor variable"},
		{"pattern mismatch", `func H(q autoroute.Query[F]) R { return nil }`, []string{`q bind=autoroute.Json{x}`}, diag.ExtractorPattern, "does not match parameter type"},
		{"positional unknown", `func H(c Claims) R { return nil }`, []string{`c bind=Claims{sub}`}, diag.ExtractorPattern, "needs a keyed field"},
		{"two payloads", `func H(a autoroute.Json[A], b autoroute.Body) R { return nil }`, nil, diag.MultiplePayloads, "multiple extractors consuming the body are defined"},
		{"payload first", `func H(b autoroute.Json[A], q autoroute.Query[F]) R { return nil }`, nil, diag.PayloadPosition, "must be the last parameter"},
		{"attr on known", `func H(q autoroute.Query[F]) R { return nil }`, []string{`q content_type=APPLICATION_JSON`}, diag.ExtractorAttr, "cannot be defined on a known extractor type"},
		{"attr on registered", `func H(f ext.Form) R { return nil }`, []string{`f into_params=true`}, diag.ExtractorAttr, "cannot be defined on a known extractor type"},
		{"missing param", `func H(q autoroute.Query[F]) R { return nil }`, []string{`x trace=true`}, diag.ExtractorAttr, "no parameter named x"},
		{"slice type", `func H(xs []string) R { return nil }`, nil, diag.ExtractorType, "should be a named type"},
		{"double pointer", `func H(q **autoroute.Query[F]) R { return nil }`, nil, diag.ExtractorType, "should be a named type"},
		{"unknown package", `func H(q nope.Query[F]) R { return nil }`, nil, diag.ExtractorType, "unknown package nope"},
	}
	for _, tt := range tests {
		_, err := analyze(t, reg, tt.fn, tt.attrs...)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if diag.CodeOf(err) != tt.code || !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%s: got %q (code %s)", tt.name, err.Error(), diag.CodeOf(err))
		}
	}
}

func TestAnalyze_RegisteredPayloadAndReservedNames(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Kind{Name: "Form", ImportPath: "example.com/ext", Role: RolePayload}); err != nil {
		t.Fatalf("register: %v", err)
	}
	fn, err := analyze(t, reg, `func H(r autoroute.Query[F], f ext.Form) R { return nil }`)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if fn.Sites[0].Local != "rArg" || fn.Sites[0].Bound != "r" {
		t.Errorf("reserved local: %+v", fn.Sites[0])
	}
	f := fn.Sites[1]
	if !f.Known() || f.Role != RolePayload || !f.Trace || f.ContentTypes[0] != catalog.MIMEOctetStream {
		t.Errorf("registered kind: %+v", f)
	}
	if err := reg.Register(Kind{Name: "Json", ImportPath: RuntimePath}); err == nil {
		t.Errorf("expected builtin redefinition to fail")
	}
}

func TestAnalyze_RuntimeNameIsReserved(t *testing.T) {
	t.Parallel()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "h.go", header+`func H(ar autoroute.Query[F], page autoroute.Path[P]) R { return nil }`, 0)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	fd := f.Decls[len(f.Decls)-1].(*ast.FuncDecl)
	imports := ImportsOf(f)

	a := NewAnalyzer(fset, nil)
	a.Runtime = RuntimeName(imports)
	if a.Runtime != "ar" {
		t.Fatalf("runtime name %q", a.Runtime)
	}
	fn, err := a.Analyze(fd.Type, imports, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if s := fn.Sites[0]; s.Local != "arArg" || s.Bound != "ar" {
		t.Errorf("runtime-named parameter: %+v", s)
	}
	if s := fn.Sites[1]; s.Local != "page" {
		t.Errorf("other parameter renamed: %+v", s)
	}
}

func TestRuntimeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		imports map[string]string
		want    string
	}{
		{imports: map[string]string{"autoroute": RuntimePath, "ar": RuntimePath}, want: "ar"},
		{imports: map[string]string{"context": "context"}, want: "autoroute"},
		{imports: map[string]string{"autoroute": "example.com/other/autoroute"}, want: "autoroutert"},
		{imports: map[string]string{"autoroute": "", "autoroutert": "example.com/x"}, want: "autoroutertrt"},
	}
	for _, tt := range tests {
		if got := RuntimeName(tt.imports); got != tt.want {
			t.Errorf("%v: got %q, want %q", tt.imports, got, tt.want)
		}
	}
}

func TestDefaultPackageName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"gopkg.in/yaml.v3":               "yaml",
		"github.com/mattn/go-isatty":     "isatty",
		"github.com/x/y/v2":              "y",
		"github.com/mark3labs/autoroute": "autoroute",
		"context":                        "context",
	}
	for in, want := range tests {
		if got := DefaultPackageName(in); got != want {
			t.Errorf("%s: got %q, want %q", in, got, want)
		}
	}
}

func TestParseKindKey(t *testing.T) {
	t.Parallel()

	p, n, err := ParseKindKey("example.com/app/ext.Form")
	if err != nil || p != "example.com/app/ext" || n != "Form" {
		t.Fatalf("got %q %q %v", p, n, err)
	}
	p, n, err = ParseKindKey("Claims")
	if err != nil || p != "" || n != "Claims" {
		t.Fatalf("bare: %q %q %v", p, n, err)
	}
}
