package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mark3labs/autoroute/internal/emitter/goemitter"
	"github.com/mark3labs/autoroute/internal/logger"
)

const petsFile = `package pets

import "github.com/mark3labs/autoroute"

type Pet struct {
	Name string ` + "`json:\"name\"`" + `
}

//autoroute:route GET, path="/pets/{name}", tags=["pets"], responses=[(200, body=Pet), (404, body=string, serializer=NONE)]
func GetPet(p autoroute.Path[string]) GetPetResponses {
	return NewGetPetOK(Pet{Name: p.Value})
}

//autoroute:route POST, path="/pets", responses=[(201, body=Pet)]
func createPet(body autoroute.Json[Pet]) createPetResponses {
	return newCreatePetCreated(body.Value)
}
`

func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func writePets(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pets.go"), []byte(content), 0o600); err != nil {
		t.Fatalf("write handlers: %v", err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	var err error
	out := captureStdout(func() { err = root.Execute() })
	return out, err
}

func TestGeneratePipeline_DryRun(t *testing.T) {
	dir := writePets(t, petsFile)

	out, err := execute(t, "generate", "--dir", dir, "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- autoroute_gen.go (") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "autoroute_gen.go")); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestGeneratePipeline_Write(t *testing.T) {
	dir := writePets(t, petsFile)

	if _, err := execute(t, "generate", "--dir", dir, "--output", "pets_gen.go", "--trace"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "pets_gen.go"))
	if err != nil {
		t.Fatalf("read generated: %v", err)
	}
	src := string(data)
	for _, want := range []string{goemitter.Header, "func GetPetRoute() autoroute.Route {", "autoroute.Trace(ctx, \"'createPet' triggered\")"} {
		if !strings.Contains(src, want) {
			t.Errorf("generated file missing %q", want)
		}
	}

	// The generated file is skipped on reload, so a second run succeeds.
	if _, err := execute(t, "generate", "--dir", dir, "--output", "pets_gen.go", "--trace"); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestGeneratePipeline_RawDefault(t *testing.T) {
	dir := writePets(t, strings.Replace(petsFile, "body=Pet), (404", "body=[]byte), (404", 1))

	out, err := execute(t, "generate", "--dir", dir, "--default-serializer", "none", "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "autoroute_gen.go") {
		t.Fatalf("plan: %s", out)
	}
}

func TestGeneratePipeline_Rejected(t *testing.T) {
	bad := strings.Replace(petsFile, "(404, body=string", "(200, body=string", 1)
	dir := writePets(t, bad)

	_, err := execute(t, "generate", "--dir", dir)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "rejected route declarations") || !strings.Contains(err.Error(), "duplicated status") {
		t.Fatalf("unexpected error text: %v", err)
	}

	_, err = execute(t, "check", "--dir", filepath.Join(dir, "missing"))
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for a missing dir, got %v", err)
	}
}

func TestGeneratePipeline_HandWrittenOutput(t *testing.T) {
	dir := writePets(t, petsFile)
	if err := os.WriteFile(filepath.Join(dir, "autoroute_gen.go"), []byte("package pets\n"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	_, err := execute(t, "generate", "--dir", dir)
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected usage error with a force hint, got %v", err)
	}
}

func TestCheckPipeline(t *testing.T) {
	dir := writePets(t, petsFile)

	out, err := execute(t, "check", "--dir", dir)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "pets: 2 handlers ok") || !strings.Contains(out, "GET /pets/{name} (2 responses)") {
		t.Fatalf("unexpected check output: %s", out)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Fatalf("check wrote files: %v", entries)
	}
}

func TestDocsPipeline(t *testing.T) {
	dir := writePets(t, petsFile)
	outDir := filepath.Join(t.TempDir(), "docs")

	out, err := execute(t, "docs", "--dir", dir, "--out", outDir, "--format", "json", "--dry-run")
	if err != nil {
		t.Fatalf("dry-run: %v", err)
	}
	if !strings.Contains(out, "- autoroute_docs.json") || !strings.Contains(out, "- openapi.json") {
		t.Fatalf("plan: %s", out)
	}

	if _, err := execute(t, "docs", "--dir", dir, "--out", outDir, "--public-only", "--title", "Pets"); err != nil {
		t.Fatalf("docs: %v", err)
	}
	manifest, err := os.ReadFile(filepath.Join(outDir, "autoroute_docs.yaml"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !strings.Contains(string(manifest), "GetPet:") || strings.Contains(string(manifest), "createPet") {
		t.Errorf("public-only manifest:\n%s", manifest)
	}
	spec, err := os.ReadFile(filepath.Join(outDir, "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi: %v", err)
	}
	if !strings.Contains(string(spec), "title: Pets") {
		t.Errorf("openapi:\n%s", spec)
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/p/pets.go", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/p/new.go", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/p/old.go", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/p/pets.go", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/p/autoroute_gen.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/p/pets_test.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/p/notes.md", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := relevant(tt.ev, "autoroute_gen.go"); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestWatch_RerunsOnChange(t *testing.T) {
	t.Parallel()
	dir := writePets(t, petsFile)
	cfg := defaultConfig()
	cfg.Dir = dir

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var runs atomic.Int32
	ran := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, &cfg, logger.NewLogger(logger.WithWriter(io.Discard)), func() {
			runs.Add(1)
			ran <- struct{}{}
		})
	}()

	wait := func(what string) {
		t.Helper()
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	wait("initial run")
	// Writing the generated file must not retrigger a run.
	if err := os.WriteFile(filepath.Join(dir, "autoroute_gen.go"), []byte("package pets\n"), 0o600); err != nil {
		t.Fatalf("write output: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "more.go"), []byte("package pets\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	wait("rerun after change")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop")
	}
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}
