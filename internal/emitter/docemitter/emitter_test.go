package docemitter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/autoroute/internal/route"
)

const shopFile = `package shop

import "github.com/mark3labs/autoroute"

type Item struct{ ID string }

type ItemParams struct {
	ID string ` + "`path:\"id\"`" + `
}

//autoroute:route GET, path="/items/{id}", tags=["items"], responses=[(200, body=Item), (404, body=string, serializer=NONE)]
func GetItem(p autoroute.Path[ItemParams]) GetItemResponses { return nil }

//autoroute:route PUT, path="/items/{id}/blob", responses=[(204, body=string, serializer=NONE, description="stored")]
func PutBlob(p autoroute.Path[ItemParams], b autoroute.Body) PutBlobResponses { return nil }
`

func loadShop(t *testing.T) *route.Package {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shop.go"), []byte(shopFile), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	pkg, err := route.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return pkg
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	pkg := loadShop(t)
	dir := t.TempDir()

	res, err := Emit(context.Background(), pkg, Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(res.Planned) != 2 || res.Planned[0].RelPath != "autoroute_docs.yaml" || res.Planned[1].RelPath != "openapi.yaml" {
		t.Fatalf("plan: %+v", res.Planned)
	}
	if res.Manifest["PutBlob"].RequestBody == nil || !res.Manifest["PutBlob"].RequestBody.Raw {
		t.Fatalf("manifest: %+v", res.Manifest["PutBlob"])
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_YAML(t *testing.T) {
	t.Parallel()
	pkg := loadShop(t)
	dir := t.TempDir()

	_, err := Emit(context.Background(), pkg, Options{OutDir: dir, Info: openapi3.Info{Title: "Shop", Version: "2.0.0"}})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "autoroute_docs.yaml"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest map[string]map[string]any
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest invalid: %v", err)
	}
	if manifest["GetItem"]["path"] != "/items/{id}" || manifest["PutBlob"]["method"] != "PUT" {
		t.Errorf("manifest: %v", manifest)
	}
	if !strings.Contains(string(data), "request_body:") || !strings.Contains(string(data), "content_type: text/plain; charset=utf-8") {
		t.Errorf("manifest keys:\n%s", data)
	}

	spec, err := os.ReadFile(filepath.Join(dir, "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi: %v", err)
	}
	if strings.Contains(string(spec), "{\"") {
		t.Errorf("openapi written in flow style:\n%s", spec)
	}
	doc, err := openapi3.NewLoader().LoadFromData(spec)
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if doc.Info.Title != "Shop" || doc.Paths["/items/{id}"].Get == nil || doc.Paths["/items/{id}/blob"].Put == nil {
		t.Errorf("openapi: %+v", doc.Paths)
	}

	// A second run into the same directory needs no force.
	if _, err := Emit(context.Background(), pkg, Options{OutDir: dir}); err != nil {
		t.Fatalf("re-emit: %v", err)
	}
}

func TestEmit_JSON(t *testing.T) {
	t.Parallel()
	pkg := loadShop(t)
	dir := t.TempDir()

	if _, err := Emit(context.Background(), pkg, Options{OutDir: dir, Format: "JSON"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	for _, name := range []string{"autoroute_docs.json", "openapi.json"} {
		j, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var v map[string]any
		if err := json.Unmarshal(j, &v); err != nil {
			t.Fatalf("%s invalid: %v", name, err)
		}
	}
}

func TestEmit_Errors(t *testing.T) {
	t.Parallel()
	pkg := loadShop(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	if _, err := Emit(context.Background(), pkg, Options{OutDir: dir}); err == nil {
		t.Fatalf("expected error on foreign files without force")
	}
	if _, err := Emit(context.Background(), pkg, Options{OutDir: dir, Force: true}); err != nil {
		t.Fatalf("forced emit: %v", err)
	}
	if _, err := Emit(context.Background(), pkg, Options{OutDir: dir, Format: "toml"}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, err := Emit(context.Background(), pkg, Options{}); err == nil {
		t.Fatalf("expected error without OutDir")
	}
}
