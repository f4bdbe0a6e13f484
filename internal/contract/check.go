package contract

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/diag"
)

// Ref points a generated identifier back at its contract.
type Ref struct {
	Contract *Contract
	// Variant is nil for the interface name.
	Variant *Variant
}

// Index maps every generated identifier of a package to its contract.
type Index map[string]Ref

// NewIndex indexes the names declared by contracts.
func NewIndex(contracts ...*Contract) Index {
	idx := Index{}
	for _, c := range contracts {
		idx[c.Interface] = Ref{Contract: c}
		for i := range c.Variants {
			v := &c.Variants[i]
			for _, name := range []string{v.TypeName, v.Constructor, v.Into} {
				idx[name] = Ref{Contract: c, Variant: v}
			}
		}
	}
	return idx
}

// CheckSignature requires fn to declare exactly one result of the contract's
// interface type.
func (c *Contract) CheckSignature(fset *token.FileSet, fn *ast.FuncDecl) error {
	pos := fn.Name.Pos()
	if res := fn.Type.Results; res != nil && len(res.List) > 0 {
		pos = res.List[0].Type.Pos()
		if len(res.List) == 1 && len(res.List[0].Names) <= 1 {
			if id, ok := res.List[0].Type.(*ast.Ident); ok && id.Name == c.Interface {
				return nil
			}
		}
	}
	return diag.Errorf(position(fset, pos), diag.ReturnType, "expecting return type `%s`", c.Interface)
}

// CheckReturns inspects the return statements of fn. Returns inside nested
// function literals belong to those literals and are skipped. Values that do
// not name a generated identifier are left to the compiler.
func (c *Contract) CheckReturns(fset *token.FileSet, fn *ast.FuncDecl, idx Index) error {
	if fn.Body == nil {
		return nil
	}
	var errs diag.List
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			switch len(x.Results) {
			case 0:
				// bare return of a named result
			case 1:
				if err := c.checkValue(fset, x.Results[0], idx); err != nil {
					errs.Add(err)
				}
			default:
				errs.Add(diag.Errorf(position(fset, x.Return), diag.ReturnValue, "expected a single value of `%s`", c.Interface))
			}
		}
		return true
	})
	return errs.Err()
}

func (c *Contract) checkValue(fset *token.FileSet, e ast.Expr, idx Index) *diag.Error {
	e = ast.Unparen(e)
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.AND {
		e = ast.Unparen(u.X)
	}
	var name string
	literal := false
	switch x := e.(type) {
	case *ast.CompositeLit:
		name, literal = localName(x.Type), true
	case *ast.CallExpr:
		name = localName(x.Fun)
	}
	if name == "" {
		return nil
	}
	pos := position(fset, e.Pos())

	if ref, ok := idx[name]; ok {
		if ref.Contract == c || ref.Contract.Handler == c.Handler {
			return nil
		}
		if literal || ref.Variant != nil {
			return diag.Errorf(pos, diag.ReturnValue, "expected a value of `%s`, found `%s` of `%s`", c.Interface, name, ref.Contract.Interface)
		}
		return nil
	}

	for _, prefix := range []string{c.Handler + "Into", c.ConstructorPrefix, c.Handler} {
		ident, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		if st, ok := catalog.StatusByIdent(ident); ok {
			return diag.Errorf(pos, diag.ReturnValue, "expected a value of `%s`: status %s is not declared", c.Interface, st)
		}
	}
	return nil
}

// localName returns the identifier of a package-local type or function,
// looking through type arguments.
func localName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IndexExpr:
		e = x.X
	case *ast.IndexListExpr:
		e = x.X
	}
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func position(fset *token.FileSet, p token.Pos) token.Position {
	if fset == nil || !p.IsValid() {
		return token.Position{}
	}
	return fset.Position(p)
}
