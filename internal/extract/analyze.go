// Package extract classifies handler parameters into extraction sites.
package extract

import (
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/diag"
)

// Site is one analyzed handler parameter.
type Site struct {
	Pos   token.Position
	Index int
	// Name is the parameter name as declared.
	Name string
	// Local is the variable name used by the generated adapter.
	Local string
	// Bound is the variable the extracted value is bound to.
	Bound string
	// Access selects the bound value from Local, e.g. ".Value".
	Access string
	// Pointer is set for parameters declared as *T.
	Pointer bool
	// Type is the parameter type without the pointer.
	Type string
	// TypeName is the unqualified, uninstantiated type name.
	TypeName   string
	ImportPath string
	// Inner is the single type argument, or Type for other types.
	Inner        string
	Kind         *Kind
	Role         Role
	ContentTypes []catalog.MIME
	IntoParams   bool
	Trace        bool
}

// Known reports whether the site's type is in the registry.
func (s Site) Known() bool { return s.Kind != nil }

// Label names the extractor in trace lines and docs.
func (s Site) Label() string {
	if s.Kind != nil {
		return s.Kind.Name
	}
	return s.TypeName
}

// Func is the analysis of a handler's parameter list.
type Func struct {
	// Context is set when the first parameter is a context.Context.
	Context bool
	Sites   []Site
}

// Payload returns the payload site, if any.
func (f *Func) Payload() *Site {
	for i := range f.Sites {
		if f.Sites[i].Role == RolePayload {
			return &f.Sites[i]
		}
	}
	return nil
}

// Imports maps local package names to import paths.
type Imports map[string]string

// ImportsOf collects a file's imports. Unnamed imports use the last path
// element with version suffixes and a go- prefix stripped.
func ImportsOf(f *ast.File) Imports {
	out := Imports{}
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		} else {
			name = DefaultPackageName(p)
		}
		if name == "_" || name == "." {
			continue
		}
		out[name] = p
	}
	return out
}

// DefaultPackageName guesses the package name of an import path.
func DefaultPackageName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 && isDigits(base[i+2:]) {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.ReplaceAll(base, "-", "")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

const patternMsg = "unable to determine extractor variable: unexpected extractor pattern, there should be a named variable " +
	"and if a destructuring pattern is used it should contain a single variable which cannot be a nested destructuring pattern"

var reservedLocals = map[string]bool{"w": true, "r": true, "ctx": true, "res": true, "err": true, "autoroute": true, "http": true}

// RuntimeName is the name generated code uses for the runtime package: the
// smallest name imports binds to it, or an unused name derived from
// "autoroute".
func RuntimeName(imports map[string]string) string {
	rt := ""
	for name, p := range imports {
		if p == RuntimePath && (rt == "" || name < rt) {
			rt = name
		}
	}
	if rt != "" {
		return rt
	}
	rt = "autoroute"
	for {
		if _, taken := imports[rt]; !taken {
			return rt
		}
		rt += "rt"
	}
}

// Analyzer runs the extraction-site rules over handler signatures.
type Analyzer struct {
	Registry *Registry
	Fset     *token.FileSet
	// Runtime is the runtime package name of the generated file. Parameters
	// with this name are renamed so they do not shadow it.
	Runtime string
}

// NewAnalyzer uses the built-in registry when reg is nil.
func NewAnalyzer(fset *token.FileSet, reg *Registry) *Analyzer {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Analyzer{Registry: reg, Fset: fset}
}

func (a *Analyzer) pos(p token.Pos) token.Position {
	if a.Fset == nil || !p.IsValid() {
		return token.Position{}
	}
	return a.Fset.Position(p)
}

// Analyze produces one site per parameter. attrs holds extractor directives
// keyed by parameter name.
func (a *Analyzer) Analyze(fn *ast.FuncType, imports Imports, attrs map[string]*decl.ExtractorAttr) (*Func, error) {
	out := &Func{}
	used := map[string]bool{}
	index := 0
	if fn.Params != nil {
		for fi, field := range fn.Params.List {
			if fi == 0 && isContext(field.Type, imports) && len(field.Names) <= 1 {
				out.Context = true
				index++
				continue
			}
			if len(field.Names) == 0 {
				return nil, diag.Errorf(a.pos(field.Type.Pos()), diag.ExtractorPattern, "%s", patternMsg)
			}
			for _, name := range field.Names {
				attr := attrs[name.Name]
				if attr != nil {
					used[name.Name] = true
				}
				site, err := a.site(index, name, field.Type, imports, attr)
				if err != nil {
					return nil, err
				}
				out.Sites = append(out.Sites, *site)
				index++
			}
		}
	}

	unused := make([]string, 0, len(attrs))
	for pname := range attrs {
		if !used[pname] {
			unused = append(unused, pname)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return nil, diag.Errorf(attrs[unused[0]].Pos, diag.ExtractorAttr, "no parameter named %s", unused[0])
	}

	payloads := 0
	for _, s := range out.Sites {
		if s.Role != RolePayload {
			continue
		}
		payloads++
		if payloads > 1 {
			return nil, diag.Errorf(s.Pos, diag.MultiplePayloads, "multiple extractors consuming the body are defined")
		}
	}
	if n := len(out.Sites); payloads == 1 && out.Sites[n-1].Role != RolePayload {
		return nil, diag.Errorf(out.Payload().Pos, diag.PayloadPosition, "extractor consuming the body must be the last parameter")
	}
	return out, nil
}

func (a *Analyzer) site(index int, name *ast.Ident, typ ast.Expr, imports Imports, attr *decl.ExtractorAttr) (*Site, error) {
	s := &Site{Pos: a.pos(name.Pos()), Index: index, Name: name.Name}
	if name.Name == "_" {
		return nil, diag.Errorf(s.Pos, diag.ExtractorPattern, "%s", patternMsg)
	}

	base := typ
	if star, ok := typ.(*ast.StarExpr); ok {
		s.Pointer = true
		base = star.X
	}
	qual, tname, args, ok := splitNamed(base)
	if !ok {
		return nil, diag.Errorf(a.pos(typ.Pos()), diag.ExtractorType, "extractor type should be a named type, found %s", types.ExprString(typ))
	}
	s.Type = types.ExprString(base)
	s.TypeName = tname
	if qual != "" {
		p, ok := imports[qual]
		if !ok {
			return nil, diag.Errorf(a.pos(base.Pos()), diag.ExtractorType, "unknown package %s in extractor type %s", qual, s.Type)
		}
		s.ImportPath = p
	}
	if len(args) == 1 {
		s.Inner = types.ExprString(args[0])
	} else {
		s.Inner = s.Type
	}

	s.Bound = name.Name
	s.Local = name.Name
	if reservedLocals[s.Local] || s.Local == a.Runtime {
		s.Local += "Arg"
	}

	s.Kind = a.Registry.Lookup(s.ImportPath, s.TypeName)
	if err := a.classify(s, attr); err != nil {
		return nil, err
	}
	if attr != nil && attr.Bind != nil {
		if err := a.bind(s, base, attr.Bind); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *Analyzer) classify(s *Site, attr *decl.ExtractorAttr) error {
	if s.Kind != nil {
		if attr != nil && (len(attr.ContentTypes) > 0 || attr.IntoParams != nil) {
			return diag.Errorf(attr.Pos, diag.ExtractorAttr, "content_type/into_params cannot be defined on a known extractor type")
		}
		s.Role = s.Kind.Role
		s.ContentTypes = s.Kind.ContentTypes
		s.IntoParams = s.Kind.IntoParams
		s.Trace = true
	} else {
		s.Role = RoleMetadata
		if attr != nil && len(attr.ContentTypes) > 0 {
			s.Role = RolePayload
			s.ContentTypes = attr.ContentTypes
		}
		if attr != nil && attr.IntoParams != nil {
			s.IntoParams = *attr.IntoParams
		}
		s.Trace = s.IntoParams || s.Role == RolePayload
	}
	if attr != nil && attr.Trace != nil {
		s.Trace = *attr.Trace
	}
	return nil
}

// bind applies an explicit binding pattern: x, &x, (x), T{x} or T{F: x}.
func (a *Analyzer) bind(s *Site, typ ast.Expr, pattern *decl.TypeExpr) error {
	fail := func() error {
		return diag.Errorf(pattern.Pos, diag.ExtractorPattern, "%s", patternMsg)
	}
	e := pattern.Expr
	for {
		switch x := e.(type) {
		case *ast.ParenExpr:
			e = x.X
			continue
		case *ast.UnaryExpr:
			if x.Op != token.AND {
				return fail()
			}
			e = x.X
			continue
		}
		break
	}
	switch x := e.(type) {
	case *ast.Ident:
		if x.Name == "_" {
			return fail()
		}
		s.Bound = x.Name
		return nil
	case *ast.CompositeLit:
		if x.Type == nil || !sameBase(x.Type, typ) {
			return diag.Errorf(pattern.Pos, diag.ExtractorPattern, "pattern type %s does not match parameter type %s", types.ExprString(x.Type), s.Type)
		}
		if len(x.Elts) != 1 {
			return fail()
		}
		switch elt := x.Elts[0].(type) {
		case *ast.Ident:
			if elt.Name == "_" {
				return fail()
			}
			if s.Kind == nil || s.Kind.ValueField == "" {
				return diag.Errorf(pattern.Pos, diag.ExtractorPattern, "positional pattern needs a keyed field for %s, e.g. %s{Field: %s}", s.TypeName, s.TypeName, elt.Name)
			}
			s.Bound = elt.Name
			s.Access = "." + s.Kind.ValueField
			return nil
		case *ast.KeyValueExpr:
			key, ok := elt.Key.(*ast.Ident)
			val, vok := elt.Value.(*ast.Ident)
			if !ok || !vok || val.Name == "_" {
				return fail()
			}
			s.Bound = val.Name
			s.Access = "." + key.Name
			return nil
		}
	}
	return fail()
}

// sameBase compares the type names of a pattern and a parameter type,
// ignoring type arguments.
func sameBase(pattern, typ ast.Expr) bool {
	pq, pn, _, ok := splitNamed(pattern)
	if !ok {
		return false
	}
	tq, tn, _, ok := splitNamed(typ)
	return ok && pq == tq && pn == tn
}

// splitNamed decomposes pkg.Name[Args] or Name[Args].
func splitNamed(e ast.Expr) (qual, name string, args []ast.Expr, ok bool) {
	switch x := e.(type) {
	case *ast.IndexExpr:
		args = []ast.Expr{x.Index}
		e = x.X
	case *ast.IndexListExpr:
		args = x.Indices
		e = x.X
	}
	switch x := e.(type) {
	case *ast.Ident:
		return "", x.Name, args, true
	case *ast.SelectorExpr:
		id, isIdent := x.X.(*ast.Ident)
		if !isIdent {
			return "", "", nil, false
		}
		return id.Name, x.Sel.Name, args, true
	}
	return "", "", nil, false
}

func isContext(e ast.Expr, imports Imports) bool {
	sel, ok := e.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && imports[id.Name] == "context"
}
