// Package goemitter renders the generated Go file of a loaded package: the
// response contracts, adapters, docs and route infos of every handler.
package goemitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/tools/imports"

	"github.com/mark3labs/autoroute/internal/route"
)

// Header starts every generated file. Files without it are never overwritten
// unless Force is set.
const Header = "// Code generated by autoroute. DO NOT EDIT."

// ErrNotGenerated is returned when the output exists and was not written by
// autoroute.
var ErrNotGenerated = errors.New("output file exists and is not generated by autoroute")

// Options controls how the Go emitter renders a package.
type Options struct {
	// OutDir defaults to the package directory.
	OutDir string
	// Output is the file name, defaulting to route.DefaultOutput.
	Output  string
	Force   bool // overwrite files that were not generated
	DryRun  bool // don't write, only plan
	Verbose bool
	Logger  *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned file and its rendered source.
type Result struct {
	Package  string
	Handlers []string
	Planned  []PlannedFile
	Source   []byte
	// Unchanged is set when the file on disk already has this content.
	Unchanged bool
}

// Emit renders the generated file of pkg.
func Emit(ctx context.Context, pkg *route.Package, opts Options) (*Result, error) {
	if pkg == nil {
		return nil, fmt.Errorf("goemitter: nil package")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outDir := strings.TrimSpace(opts.OutDir)
	if outDir == "" {
		outDir = pkg.Dir
	}
	if outDir == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	output := strings.TrimSpace(opts.Output)
	if output == "" {
		output = route.DefaultOutput
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	path := filepath.Join(outDir, output)
	src, err := Render(pkg, path)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Package: pkg.Name,
		Planned: []PlannedFile{{RelPath: output, Size: len(src), Mode: 0o644}},
		Source:  src,
	}
	for _, h := range pkg.Handlers {
		res.Handlers = append(res.Handlers, h.Name)
	}
	if opts.Verbose {
		log.Debug("rendered file", "file", output, "bytes", len(src), "handlers", res.Handlers)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, src) {
			res.Unchanged = true
			return res, nil
		}
		if !opts.Force && !bytes.HasPrefix(existing, []byte(Header)) {
			return nil, fmt.Errorf("goemitter: %s: %w (use --force to overwrite)", path, ErrNotGenerated)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("goemitter: read %s: %w", path, err)
	}

	if !opts.DryRun {
		if err := writeFile(path, src); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Render returns the formatted source of the generated file. filename is
// used to resolve imports.
func Render(pkg *route.Package, filename string) ([]byte, error) {
	data, err := newFileData(pkg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("goemitter: render: %w", err)
	}
	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		return nil, fmt.Errorf("goemitter: format generated code: %w\n%s", err, buf.Bytes())
	}
	return out, nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// atomic write via temp file + rename
	tmp := path + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
