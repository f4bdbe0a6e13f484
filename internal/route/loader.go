// Package route loads a Go package directory, finds handlers annotated with
// route directives and compiles each of them into a Handler.
package route

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/autoroute/internal/contract"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/diag"
	"github.com/mark3labs/autoroute/internal/docs"
	"github.com/mark3labs/autoroute/internal/extract"
	"github.com/mark3labs/autoroute/internal/trace"
)

const (
	RouteDirective     = "//autoroute:route"
	ExtractorDirective = "//autoroute:extractor"

	// DefaultOutput is the name of the generated file.
	DefaultOutput = "autoroute_gen.go"
)

// Settings configures loader behavior.
type Settings struct {
	Registry *extract.Registry
	// Trace plans debug traces for every handler.
	Trace bool
	// RawByDefault writes bodies without a serializer raw instead of as JSON.
	RawByDefault bool
	// Output is the generated file name. It is skipped while loading.
	Output string
	Logger *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		Registry: extract.NewRegistry(),
		Output:   DefaultOutput,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithRegistry(r *extract.Registry) Option { return func(s *Settings) { s.Registry = r } }
func WithTrace(on bool) Option                { return func(s *Settings) { s.Trace = on } }
func WithRawByDefault(on bool) Option         { return func(s *Settings) { s.RawByDefault = on } }
func WithOutput(name string) Option           { return func(s *Settings) { s.Output = name } }
func WithLogger(l *slog.Logger) Option        { return func(s *Settings) { s.Logger = l } }

// Load parses the non-test Go files of dir and compiles every annotated
// handler. Rejected declarations are collected and reported together, sorted
// by position, as a DeclError wrapping a diag.List.
func Load(ctx context.Context, dir string, opts ...Option) (*Package, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &LoadError{Code: InputError, Message: "route: directory is empty"}
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Registry == nil {
		settings.Registry = extract.NewRegistry()
	}
	log := settings.Logger

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: dir, Cause: err}
	}
	names, err := goFiles(abs, settings.Output)
	if err != nil {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("read dir %s: %v", abs, err), Location: abs, Cause: err}
	}
	if len(names) == 0 {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("no Go files in %s", abs), Location: abs}
	}

	fset := token.NewFileSet()
	pkg := &Package{Dir: abs, Imports: map[string]string{}}
	var errs diag.List
	var pending []*pendingHandler
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(abs, name)
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, &LoadError{Code: ParseError, Message: err.Error(), Location: path, Cause: err}
		}
		if pkg.Name == "" {
			pkg.Name = f.Name.Name
		} else if pkg.Name != f.Name.Name {
			return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("found packages %s and %s in %s", pkg.Name, f.Name.Name, abs), Location: path}
		}

		found, ferrs := collect(fset, f)
		errs = append(errs, ferrs...)
		if len(found) == 0 {
			continue
		}
		log.Debug("parsed file", "file", name, "handlers", len(found))
		imports := extract.ImportsOf(f)
		for k, v := range imports {
			if have, ok := pkg.Imports[k]; ok && have != v {
				// Resolved once the handlers using k are known.
				pkg.Imports[k] = ""
				continue
			}
			pkg.Imports[k] = v
		}
		for _, ph := range found {
			ph.imports = imports
		}
		pending = append(pending, found...)
	}

	pkg.Runtime = extract.RuntimeName(pkg.Imports)
	c := &compiler{settings: settings, fset: fset, runtime: pkg.Runtime}
	var handlers []*Handler
	for _, ph := range pending {
		h, err := c.compile(ph)
		if err != nil {
			log.Debug("rejected handler", "handler", ph.fn.Name.Name, "err", err)
			errs.Append(err)
			continue
		}
		h.imports = ph.imports
		handlers = append(handlers, h)
	}
	errs = append(errs, resolveImports(pkg.Imports, handlers)...)

	// Return values are checked once every contract of the package is known.
	contracts := make([]*contract.Contract, len(handlers))
	for i, h := range handlers {
		contracts[i] = h.Contract
	}
	idx := contract.NewIndex(contracts...)
	seen := map[string]*Handler{}
	for _, h := range handlers {
		if err := h.Contract.CheckReturns(fset, h.funcDecl, idx); err != nil {
			errs.Append(err)
			continue
		}
		key := string(h.Route.Method) + " " + h.Route.Path
		if prev, ok := seen[key]; ok {
			errs.Add(diag.Errorf(h.Route.Pos, diag.InvalidPath, "route %s is already declared by %s", key, prev.Name))
			continue
		}
		seen[key] = h
		pkg.Handlers = append(pkg.Handlers, h)
	}

	if len(errs) > 0 {
		errs.Sort()
		return nil, &LoadError{Code: DeclError, Message: errs.Error(), Location: abs, Cause: errs}
	}
	sortHandlers(pkg.Handlers)
	log.Debug("loaded package", "package", pkg.Name, "dir", abs, "handlers", len(pkg.Handlers))
	return pkg, nil
}

func goFiles(dir, output string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == output {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type pendingHandler struct {
	fn      *ast.FuncDecl
	route   []decl.Fragment
	attrs   [][]decl.Fragment
	imports extract.Imports
}

// collect finds functions whose doc comment carries route directives.
func collect(fset *token.FileSet, f *ast.File) ([]*pendingHandler, diag.List) {
	var out []*pendingHandler
	var errs diag.List
	for _, d := range f.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		ph := &pendingHandler{fn: fn}
		for _, c := range fn.Doc.List {
			if text, ok := directive(c.Text, RouteDirective); ok {
				ph.route = append(ph.route, fragment(fset, c, RouteDirective, text))
			} else if text, ok := directive(c.Text, ExtractorDirective); ok {
				ph.attrs = append(ph.attrs, []decl.Fragment{fragment(fset, c, ExtractorDirective, text)})
			}
		}
		pos := fset.Position(fn.Name.Pos())
		switch {
		case len(ph.route) == 0 && len(ph.attrs) > 0:
			errs.Add(diag.Errorf(ph.attrs[0][0].Pos, diag.Grammar, "extractor directive on %s without a route directive", fn.Name.Name))
		case len(ph.route) == 0:
		case fn.Recv != nil:
			errs.Add(diag.Errorf(pos, diag.Grammar, "route directives are only supported on functions, %s is a method", fn.Name.Name))
		case fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0:
			errs.Add(diag.Errorf(pos, diag.Grammar, "generic handler %s is not supported", fn.Name.Name))
		default:
			out = append(out, ph)
		}
	}
	return out, errs
}

// directive reports whether line starts with prefix followed by a space, a
// tab or the end of the line, and returns the rest.
func directive(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return rest, true
}

func fragment(fset *token.FileSet, c *ast.Comment, prefix, text string) decl.Fragment {
	pos := fset.Position(c.Slash)
	pos.Offset += len(prefix)
	pos.Column += len(prefix)
	return decl.Fragment{Text: text, Pos: pos}
}

// resolveImports settles import names that files bind to different paths.
// A name is only ambiguous when handlers of both files use it in a parameter
// or response type; otherwise it takes the path of the files that use it.
func resolveImports(imports map[string]string, handlers []*Handler) diag.List {
	var errs diag.List
	for name, p := range imports {
		if p != "" {
			continue
		}
		var first *Handler
		for _, h := range handlers {
			if h.imports[name] == "" || !h.usesQualifier(name) {
				continue
			}
			switch {
			case first == nil:
				first = h
				imports[name] = h.imports[name]
			case h.imports[name] != imports[name]:
				errs.Add(diag.Errorf(h.Pos, diag.Grammar, "import name %s refers to %s here and to %s in %s",
					name, h.imports[name], imports[name], first.File))
			}
		}
		if first == nil {
			delete(imports, name)
		}
	}
	return errs
}

type compiler struct {
	settings Settings
	fset     *token.FileSet
	runtime  string
}

func (c *compiler) compile(ph *pendingHandler) (*Handler, error) {
	name := ph.fn.Name.Name
	log := c.settings.Logger

	r, err := decl.ParseRoute(decl.NewSource(ph.route...))
	if err != nil {
		return nil, err
	}
	log.Debug("parsed route", "handler", name, "method", r.Method, "path", r.Path, "responses", len(r.Responses))

	attrs := map[string]*decl.ExtractorAttr{}
	for _, frags := range ph.attrs {
		a, err := decl.ParseExtractor(decl.NewSource(frags...))
		if err != nil {
			return nil, err
		}
		if _, dup := attrs[a.Param]; dup {
			return nil, diag.Errorf(a.Pos, diag.DuplicateField, "extractor directive for %s already defined", a.Param)
		}
		attrs[a.Param] = a
	}

	ct, err := contract.Synthesize(name, r, contract.Options{RawByDefault: c.settings.RawByDefault})
	if err != nil {
		return nil, err
	}
	if err := ct.CheckSignature(c.fset, ph.fn); err != nil {
		return nil, err
	}
	an := extract.NewAnalyzer(c.fset, c.settings.Registry)
	an.Runtime = c.runtime
	fn, err := an.Analyze(ph.fn.Type, ph.imports, attrs)
	if err != nil {
		return nil, err
	}
	log.Debug("analyzed handler", "handler", name, "sites", len(fn.Sites), "context", fn.Context)

	entry, err := docs.Build(r, ct, fn)
	if err != nil {
		return nil, err
	}
	pos := c.fset.Position(ph.fn.Name.Pos())
	h := &Handler{
		Name:     name,
		File:     filepath.Base(pos.Filename),
		Pos:      pos,
		Route:    r,
		Func:     fn,
		Contract: ct,
		Doc:      entry,
		funcDecl: ph.fn,
	}
	if c.settings.Trace {
		h.Trace = trace.Build(fn, ct)
	}
	return h, nil
}
