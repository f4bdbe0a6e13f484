package route

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/autoroute/internal/diag"
	"github.com/mark3labs/autoroute/internal/extract"
)

const shopFile = `package shop

import (
	"context"

	"github.com/mark3labs/autoroute"
)

type Item struct{ ID string }

type ItemParams struct {
	ID string ` + "`path:\"id\"`" + `
}

// GetItem returns one item.
//
//autoroute:route GET, path="/items/{id}", tags=["items"],
//autoroute:route   responses=[(200, body=Item), (NOT_FOUND, body=string, serializer=NONE)]
//autoroute:extractor p trace=false
func GetItem(ctx context.Context, p autoroute.Path[ItemParams]) GetItemResponses {
	if p.Value.ID == "" {
		return NewGetItemNotFound("missing")
	}
	return GetItemOK{Body: Item{ID: p.Value.ID}}
}

//autoroute:route POST, path="/items", responses=[(201, body=Item)]
func createItem(body autoroute.Json[Item]) createItemResponses {
	return newCreateItemCreated(body.Value)
}

// helper has no directive and is ignored.
func helper() {}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_Package(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"shop.go":          shopFile,
		"autoroute_gen.go": "this is not Go",
		"shop_test.go":     "neither is this",
	})
	pkg, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pkg.Name != "shop" || len(pkg.Handlers) != 2 {
		t.Fatalf("package: %s with %d handlers", pkg.Name, len(pkg.Handlers))
	}

	get := pkg.Handler("GetItem")
	if get == nil || get.File != "shop.go" {
		t.Fatalf("GetItem: %+v", get)
	}
	if get.Route.Path != "/items/{id}" || len(get.Route.Responses) != 2 {
		t.Errorf("route: %+v", get.Route)
	}
	if diff := cmp.Diff([]int{200, 404}, get.Contract.Statuses()); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if !get.Func.Context || len(get.Func.Sites) != 1 || get.Func.Sites[0].Trace {
		t.Errorf("sites: %+v", get.Func)
	}
	if get.Trace != nil {
		t.Errorf("trace planned without WithTrace")
	}
	if get.Doc.Parameters[0].In != "path" {
		t.Errorf("doc: %+v", get.Doc)
	}

	create := pkg.Handler("createItem")
	if create == nil || create.Contract.Variants[0].Constructor != "newCreateItemCreated" {
		t.Fatalf("createItem: %+v", create)
	}
	if got := pkg.ImportNames(); !cmp.Equal(got, []string{"autoroute", "context"}) {
		t.Errorf("imports: %v", got)
	}
	if len(pkg.Entries()) != 2 {
		t.Errorf("entries: %d", len(pkg.Entries()))
	}
}

func TestLoad_Options(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"shop.go": shopFile})
	reg := extract.NewRegistry()
	pkg, err := Load(context.Background(), dir, WithTrace(true), WithRawByDefault(true), WithRegistry(reg))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	get := pkg.Handler("GetItem")
	if get.Trace == nil || len(get.Trace.Values) != 0 || len(get.Trace.Exits) != 2 {
		t.Fatalf("trace: %+v", get.Trace)
	}
	if get.Contract.Variant(200).Serialize.String() != "raw" {
		t.Errorf("raw by default not applied: %v", get.Contract.Variant(200).Serialize)
	}
}

func TestLoad_CollectsSortedDiagnostics(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"b.go": `package p

//autoroute:route GET, path="/x", responses=[(200, body=string), (200, body=int)]
func Dup() DupResponses { return nil }

//autoroute:route GET, path="/y", responses=[(200, body=string)]
func Undeclared() UndeclaredResponses { return UndeclaredNotFound{} }
`,
		"a.go": `package p

//autoroute:route GET, path="/z", responses=[(200, body=string)]
func Wrong() string { return "" }

type T struct{}

//autoroute:route GET, path="/m", responses=[(200, body=string)]
func (T) Method() MethodResponses { return nil }

//autoroute:extractor x trace=true
func Orphan(x int) {}
`,
	})
	_, err := Load(context.Background(), dir)
	var le *LoadError
	if !errors.As(err, &le) || le.Code != DeclError {
		t.Fatalf("expected DeclError, got %v (%T)", err, err)
	}
	var list diag.List
	if !errors.As(err, &list) {
		t.Fatalf("expected diag.List cause, got %T", le.Cause)
	}
	var codes []diag.Code
	for _, e := range list {
		codes = append(codes, e.Code)
	}
	want := []diag.Code{diag.ReturnType, diag.Grammar, diag.Grammar, diag.DuplicateStatus, diag.ReturnValue}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("codes (-want +got):\n%s\n%v", diff, err)
	}
	lines := strings.Split(err.Error(), "\n")
	if !strings.Contains(lines[0], "a.go:4:") || !strings.Contains(lines[0], "expecting return type `WrongResponses`") {
		t.Errorf("first diagnostic: %q", lines[0])
	}
	if !strings.Contains(lines[3], "b.go:3:") || !strings.Contains(lines[3], "duplicated status 200") {
		t.Errorf("duplicate diagnostic: %q", lines[3])
	}
	if !strings.Contains(lines[4], "status 404:NOT_FOUND is not declared") {
		t.Errorf("return value diagnostic: %q", lines[4])
	}
}

func TestLoad_ImportNameClash(t *testing.T) {
	t.Parallel()

	textFile := func(use bool) string {
		body := "string"
		if use {
			body = "*template.Template"
		}
		return `package p

import "text/template"

//autoroute:route GET, path="/a", responses=[(200, body=` + body + `)]
func A() AResponses { return nil }

var _ = template.New
`
	}
	const htmlFile = `package p

import "html/template"

//autoroute:route GET, path="/b", responses=[(200, body=*template.Template)]
func B() BResponses { return nil }
`
	const unusedFile = `package p

import "html/template"

//autoroute:route GET, path="/b", responses=[(200, body=string)]
func B() BResponses { return nil }

var _ = template.New
`

	t.Run("unused", func(t *testing.T) {
		t.Parallel()
		dir := writeFiles(t, map[string]string{"a.go": textFile(false), "b.go": unusedFile})
		pkg, err := Load(context.Background(), dir)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if p, ok := pkg.Imports["template"]; ok {
			t.Errorf("unused clashing import kept as %q", p)
		}
	})

	t.Run("used by one file", func(t *testing.T) {
		t.Parallel()
		dir := writeFiles(t, map[string]string{"a.go": textFile(false), "b.go": htmlFile})
		pkg, err := Load(context.Background(), dir)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got := pkg.Imports["template"]; got != "html/template" {
			t.Errorf("template resolves to %q", got)
		}
	})

	t.Run("used by both files", func(t *testing.T) {
		t.Parallel()
		dir := writeFiles(t, map[string]string{"a.go": textFile(true), "b.go": htmlFile})
		_, err := Load(context.Background(), dir)
		var list diag.List
		if !errors.As(err, &list) || len(list) != 1 || list[0].Code != diag.Grammar {
			t.Fatalf("expected one grammar diagnostic, got %v", err)
		}
		want := "import name template refers to html/template here and to text/template in a.go"
		if !strings.Contains(err.Error(), "b.go:") || !strings.Contains(err.Error(), want) {
			t.Errorf("diagnostic: %v", err)
		}
	})
}

func TestLoad_RuntimeNamedParameter(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"p.go": `package p

import ar "github.com/mark3labs/autoroute"

type Filter struct{}

//autoroute:route GET, path="/x", responses=[(200, body=string)]
func List(ar ar.Query[Filter]) ListResponses { return nil }
`})
	pkg, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pkg.Runtime != "ar" {
		t.Fatalf("runtime name %q", pkg.Runtime)
	}
	if s := pkg.Handler("List").Func.Sites[0]; s.Local != "arArg" || s.Bound != "ar" {
		t.Errorf("site: %+v", s)
	}
}

func TestLoad_DuplicateRoute(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"p.go": `package p

//autoroute:route GET, path="/x", responses=[(200, body=string)]
func A() AResponses { return nil }

//autoroute:route GET, path="/x", responses=[(204, body=string)]
func B() BResponses { return nil }
`})
	_, err := Load(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "route GET /x is already declared by A") {
		t.Fatalf("got %v", err)
	}
}

func TestLoad_InputErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]map[string]string{
		"empty dir": {},
		"mixed packages": {
			"a.go": "package a\n",
			"b.go": "package b\n",
		},
	}
	for name, files := range tests {
		dir := writeFiles(t, files)
		_, err := Load(context.Background(), dir)
		var le *LoadError
		if !errors.As(err, &le) || le.Code != InputError {
			t.Errorf("%s: expected InputError, got %v", name, err)
		}
	}

	dir := writeFiles(t, map[string]string{"a.go": "package a\nfunc {"})
	_, err := Load(context.Background(), dir)
	var le *LoadError
	if !errors.As(err, &le) || le.Code != ParseError || le.Location == "" {
		t.Errorf("expected ParseError with location, got %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"shop.go": shopFile})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
