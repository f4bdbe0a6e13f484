package route

import (
	"go/ast"
	"go/token"
	"sort"

	"github.com/mark3labs/autoroute/internal/contract"
	"github.com/mark3labs/autoroute/internal/decl"
	"github.com/mark3labs/autoroute/internal/docs"
	"github.com/mark3labs/autoroute/internal/extract"
	"github.com/mark3labs/autoroute/internal/trace"
)

// Package is the compiled model of one Go package directory, consumed by the
// emitters.
type Package struct {
	Name string
	Dir  string
	// Imports are the imports of files that declare handlers, keyed by the
	// name they are referenced with.
	Imports map[string]string
	// Runtime is the name the generated file binds the runtime package to.
	Runtime  string
	Handlers []*Handler
}

// Handler is one annotated function with everything derived from its
// declaration.
type Handler struct {
	Name     string
	File     string
	Pos      token.Position
	Route    *decl.Route
	Func     *extract.Func
	Contract *contract.Contract
	Doc      *docs.Entry
	// Trace is nil when tracing is disabled.
	Trace *trace.Plan

	funcDecl *ast.FuncDecl
	imports  extract.Imports
}

// usesQualifier reports whether a parameter or response type of h refers to
// the package imported as name.
func (h *Handler) usesQualifier(name string) bool {
	var exprs []ast.Expr
	if h.funcDecl != nil && h.funcDecl.Type.Params != nil {
		for i, f := range h.funcDecl.Type.Params.List {
			if i == 0 && h.Func != nil && h.Func.Context {
				continue
			}
			exprs = append(exprs, f.Type)
		}
	}
	for _, r := range h.Route.Responses {
		exprs = append(exprs, r.Body.Expr)
		for _, p := range r.Parts {
			exprs = append(exprs, p.Expr)
		}
		if r.Serializer.Expr != nil {
			exprs = append(exprs, r.Serializer.Expr.Expr)
		}
	}
	found := false
	for _, e := range exprs {
		if e == nil {
			continue
		}
		ast.Inspect(e, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if id, ok := sel.X.(*ast.Ident); ok && id.Name == name {
					found = true
				}
			}
			return !found
		})
	}
	return found
}

// Handler returns the handler called name.
func (p *Package) Handler(name string) *Handler {
	for _, h := range p.Handlers {
		if h.Name == name {
			return h
		}
	}
	return nil
}

// Entries lists the doc entries in handler order.
func (p *Package) Entries() []*docs.Entry {
	out := make([]*docs.Entry, len(p.Handlers))
	for i, h := range p.Handlers {
		out[i] = h.Doc
	}
	return out
}

// ImportNames lists the import names in order.
func (p *Package) ImportNames() []string {
	out := make([]string, 0, len(p.Imports))
	for k := range p.Imports {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortHandlers(hs []*Handler) {
	sort.SliceStable(hs, func(i, j int) bool {
		a, b := hs[i].Pos, hs[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
}
