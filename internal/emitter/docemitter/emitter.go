// Package docemitter writes the documentation artifacts of a loaded package:
// a manifest of doc entries keyed by handler and a static OpenAPI skeleton.
package docemitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/autoroute/internal/docs"
	"github.com/mark3labs/autoroute/internal/route"
)

// Formats accepted by Options.Format.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

const (
	manifestBase = "autoroute_docs"
	openAPIBase  = "openapi"
)

// Options controls how documentation is rendered.
type Options struct {
	OutDir string // required; target directory for the documents
	Format string // yaml (default) or json
	Info   openapi3.Info
	Force  bool // write into a directory holding other files
	DryRun bool // don't write, only plan
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the rendered documents.
type Result struct {
	Planned  []PlannedFile
	Manifest map[string]*docs.Entry
	OpenAPI  *openapi3.T
}

// Emit renders the manifest and the OpenAPI skeleton of pkg.
func Emit(ctx context.Context, pkg *route.Package, opts Options) (*Result, error) {
	if pkg == nil {
		return nil, fmt.Errorf("docemitter: nil package")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("docemitter: OutDir is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatYAML
	}
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("docemitter: unsupported format %q (allowed: yaml, json)", opts.Format)
	}

	manifest := make(map[string]*docs.Entry, len(pkg.Handlers))
	for _, h := range pkg.Handlers {
		manifest[h.Name] = h.Doc
	}
	doc, err := docs.Skeleton(pkg.Entries(), opts.Info)
	if err != nil {
		return nil, fmt.Errorf("docemitter: %w", err)
	}

	files := map[string][]byte{}
	manifestData, err := encode(manifest, format)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	files[manifestBase+"."+format] = manifestData
	openAPIData, err := encodeOpenAPI(doc, format)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}
	files[openAPIBase+"."+format] = openAPIData

	// Plan in deterministic order
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Planned: planned, Manifest: manifest, OpenAPI: doc}, nil
}

func encode(v any, format string) ([]byte, error) {
	if format == FormatJSON {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeOpenAPI goes through the document's own JSON marshalling so that
// refs and extensions are rendered as kin-openapi defines them. YAML output
// re-reads that JSON as a node tree to keep key order.
func encodeOpenAPI(doc *openapi3.T, format string) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	return encode(&node, FormatYAML)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: files other than ours in the directory need force.
	if entries, err := os.ReadDir(abs); err == nil && !force {
		for _, e := range entries {
			if _, ours := files[e.Name()]; !ours {
				return fmt.Errorf("docemitter: output directory %q holds other files (use --force to write anyway)", abs)
			}
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
