package decl

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/diag"
)

type declParser struct {
	src  *Source
	toks []tok
	i    int
}

func newParser(src *Source) (*declParser, error) {
	toks, err := src.lex()
	if err != nil {
		return nil, err
	}
	return &declParser{src: src, toks: toks}, nil
}

func (p *declParser) peek() tok { return p.toks[p.i] }

func (p *declParser) peekAt(n int) tok {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *declParser) next() tok {
	t := p.toks[p.i]
	if t.tok != token.EOF {
		p.i++
	}
	return t
}

func (p *declParser) at(t tok) token.Position { return p.src.Pos(t.off) }

func (p *declParser) errorf(t tok, code diag.Code, format string, args ...any) *diag.Error {
	return diag.Errorf(p.at(t), code, format, args...)
}

func (p *declParser) expect(want token.Token) (tok, error) {
	t := p.next()
	if t.tok != want {
		return t, p.errorf(t, diag.Grammar, "expected `%s`, found `%s`", want, t)
	}
	return t, nil
}

func (p *declParser) expectIdent(name string, code diag.Code) (tok, error) {
	t := p.next()
	if t.tok != token.IDENT || t.lit != name {
		return t, p.errorf(t, code, "expected ident `%s`", name)
	}
	return t, nil
}

// fieldSep consumes the comma between named fields. It reports true when the
// list is finished, either at end or after a trailing comma.
func (p *declParser) fieldSep(end token.Token) (bool, error) {
	if p.peek().tok == end {
		return true, nil
	}
	if _, err := p.expect(token.COMMA); err != nil {
		return false, err
	}
	return p.peek().tok == end, nil
}

// ParseRoute parses a route directive.
func ParseRoute(src *Source) (*Route, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseRoute()
}

var methodErr = "unexpected method, should be one of: " + catalog.MethodList()

func (p *declParser) parseRoute() (*Route, error) {
	mt := p.next()
	if mt.tok != token.IDENT {
		return nil, p.errorf(mt, diag.UnknownMethod, "%s", methodErr)
	}
	method, ok := catalog.ParseMethod(mt.lit)
	if !ok {
		return nil, p.errorf(mt, diag.UnknownMethod, "%s", methodErr)
	}
	r := &Route{Pos: p.at(mt), Method: method}

	if t := p.next(); t.tok != token.COMMA {
		return nil, p.errorf(t, diag.MissingField, "expected `,` followed by ident `path`")
	}
	if _, err := p.expectIdent("path", diag.MissingField); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	pt := p.peek()
	path, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, p.errorf(pt, diag.InvalidPath, "invalid path %q: %v", path, err)
	}
	r.Path, r.PathPos = path, p.at(pt)

	seen := map[string]bool{}
	haveResponses := false
	for {
		done, err := p.fieldSep(token.EOF)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		key := p.next()
		if key.tok != token.IDENT || (key.lit != "responses" && key.lit != "tags") {
			return nil, p.errorf(key, diag.Grammar, "expected one of: responses, tags")
		}
		if seen[key.lit] {
			return nil, p.errorf(key, diag.DuplicateField, "%s already defined", key.lit)
		}
		seen[key.lit] = true
		if _, err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		switch key.lit {
		case "tags":
			if r.Tags, err = p.parseStringList(); err != nil {
				return nil, err
			}
		case "responses":
			if r.Responses, err = p.parseResponses(); err != nil {
				return nil, err
			}
			haveResponses = true
		}
	}
	if !haveResponses {
		return nil, p.errorf(mt, diag.MissingField, "no responses defined")
	}
	return r, nil
}

func (p *declParser) parseString() (string, error) {
	t := p.next()
	if t.tok != token.STRING {
		return "", p.errorf(t, diag.Grammar, "expected string literal, found `%s`", t)
	}
	s, err := strconv.Unquote(t.lit)
	if err != nil {
		return "", p.errorf(t, diag.Grammar, "invalid string literal: %v", err)
	}
	return s, nil
}

func (p *declParser) parseBool() (bool, error) {
	t := p.next()
	if t.tok == token.IDENT {
		switch t.lit {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, p.errorf(t, diag.Grammar, "expected boolean literal, found `%s`", t)
}

func (p *declParser) parseStringList() ([]string, error) {
	if _, err := p.expect(token.LBRACK); err != nil {
		return nil, err
	}
	out := []string{}
	for p.peek().tok != token.RBRACK {
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if p.peek().tok == token.RBRACK {
			break
		}
		if _, err := p.expect(token.COMMA); err != nil {
			return nil, err
		}
	}
	p.next()
	return out, nil
}

func (p *declParser) parseResponses() ([]Response, error) {
	open, err := p.expect(token.LBRACK)
	if err != nil {
		return nil, err
	}
	if p.peek().tok == token.RBRACK {
		return nil, p.errorf(open, diag.MissingField, "at least one response is required")
	}
	var out []Response
	seen := map[int]bool{}
	for p.peek().tok != token.RBRACK {
		st := p.peekAt(1)
		resp, err := p.parseResponse()
		if err != nil {
			return nil, err
		}
		if seen[resp.Status.Code] {
			return nil, p.errorf(st, diag.DuplicateStatus, "duplicated status %d", resp.Status.Code)
		}
		seen[resp.Status.Code] = true
		out = append(out, *resp)
		if p.peek().tok == token.RBRACK {
			break
		}
		if _, err := p.expect(token.COMMA); err != nil {
			return nil, err
		}
	}
	p.next()
	return out, nil
}

const statusErr = "unexpected status code, should be a numeric status code or a constant such as NOT_FOUND"

const responseFields = "expected one of: content_type, serializer, headers, description, trace"

func (p *declParser) parseResponse() (*Response, error) {
	open, err := p.expect(token.LPAREN)
	if err != nil {
		return nil, err
	}
	resp := &Response{Pos: p.at(open), Trace: true}

	st := p.next()
	switch st.tok {
	case token.INT:
		code, err := strconv.Atoi(st.lit)
		if err != nil {
			return nil, p.errorf(st, diag.UnknownStatus, statusErr)
		}
		s, ok := catalog.StatusByCode(code)
		if !ok {
			return nil, p.errorf(st, diag.UnknownStatus, statusErr)
		}
		resp.Status = s
	case token.IDENT:
		s, ok := catalog.StatusBySymbol(st.lit)
		if !ok {
			return nil, p.errorf(st, diag.UnknownStatus, statusErr)
		}
		resp.Status = s
	default:
		return nil, p.errorf(st, diag.UnknownStatus, statusErr)
	}

	if _, err := p.expect(token.COMMA); err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("body", diag.MissingField); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	if err := p.parseBody(resp); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for {
		done, err := p.fieldSep(token.RPAREN)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		key := p.next()
		if key.tok != token.IDENT {
			return nil, p.errorf(key, diag.Grammar, responseFields)
		}
		switch key.lit {
		case "content_type", "serializer", "headers", "description", "trace":
		default:
			return nil, p.errorf(key, diag.Grammar, responseFields)
		}
		if seen[key.lit] {
			return nil, p.errorf(key, diag.DuplicateField, "%s already defined", key.lit)
		}
		seen[key.lit] = true
		if _, err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		switch key.lit {
		case "content_type":
			resp.ContentType, err = p.parseMIME()
		case "serializer":
			resp.Serializer, err = p.parseSerializer()
		case "headers":
			resp.Headers, err = p.parseHeaders()
		case "description":
			resp.Description, err = p.parseString()
		case "trace":
			resp.Trace, err = p.parseBool()
		}
		if err != nil {
			return nil, err
		}
	}
	p.next()
	return resp, nil
}

// parseBody handles body=T, body=(T) and body=(P1, ..., B).
func (p *declParser) parseBody(resp *Response) error {
	if p.peek().tok != token.LPAREN {
		t, err := p.parseTypeExpr()
		if err != nil {
			return err
		}
		resp.Body = *t
		return nil
	}
	open := p.next()
	var elems []TypeExpr
	trailing := false
	for p.peek().tok != token.RPAREN {
		if p.peek().tok == token.LPAREN && p.groupHasComma(p.i) {
			return p.errorf(p.peek(), diag.Grammar, "tuple types cannot be a response body")
		}
		t, err := p.parseTypeExpr()
		if err != nil {
			return err
		}
		elems = append(elems, *t)
		trailing = false
		if p.peek().tok == token.RPAREN {
			break
		}
		if _, err := p.expect(token.COMMA); err != nil {
			return err
		}
		trailing = true
	}
	p.next()
	switch {
	case len(elems) == 0:
		return p.errorf(open, diag.Grammar, "expected a body type")
	case len(elems) == 1 && !trailing:
		resp.Body = elems[0]
	default:
		resp.Parts = elems[:len(elems)-1]
		resp.Body = elems[len(elems)-1]
	}
	return nil
}

// groupHasComma reports whether the parenthesized group opening at index i
// contains a comma at its own nesting level.
func (p *declParser) groupHasComma(i int) bool {
	depth := 0
	for ; i < len(p.toks); i++ {
		switch p.toks[i].tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			if depth == 0 {
				return false
			}
		case token.COMMA:
			if depth == 1 {
				return true
			}
		case token.EOF:
			return false
		}
	}
	return false
}

// collectExpr consumes tokens up to the next comma or closing bracket at
// nesting level zero and returns the covered source text.
func (p *declParser) collectExpr() (tok, string, error) {
	start := p.peek()
	depth := 0
	end := start.off
loop:
	for {
		t := p.peek()
		switch t.tok {
		case token.EOF:
			break loop
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if depth == 0 {
				break loop
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				break loop
			}
		}
		p.next()
		end = t.off + len(t.String())
	}
	text := strings.TrimSpace(p.src.Text[start.off:end])
	if text == "" {
		return start, "", p.errorf(start, diag.Grammar, "expected expression, found `%s`", start)
	}
	return start, text, nil
}

func (p *declParser) parseExpr() (*TypeExpr, error) {
	start, text, err := p.collectExpr()
	if err != nil {
		return nil, err
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, p.errorf(start, diag.Grammar, "invalid expression %q: %v", text, err)
	}
	return &TypeExpr{Text: text, Expr: expr, Pos: p.at(start)}, nil
}

func (p *declParser) parseTypeExpr() (*TypeExpr, error) {
	start := p.peek()
	t, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !IsTypeExpr(t.Expr) {
		return nil, p.errorf(start, diag.Grammar, "expected a type, found %q", t.Text)
	}
	return t, nil
}

// IsTypeExpr reports whether e has the shape of a Go type.
func IsTypeExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name != "_"
	case *ast.SelectorExpr:
		_, ok := x.X.(*ast.Ident)
		return ok
	case *ast.StarExpr:
		return IsTypeExpr(x.X)
	case *ast.ParenExpr:
		return IsTypeExpr(x.X)
	case *ast.ArrayType:
		return IsTypeExpr(x.Elt)
	case *ast.MapType:
		return IsTypeExpr(x.Key) && IsTypeExpr(x.Value)
	case *ast.ChanType:
		return IsTypeExpr(x.Value)
	case *ast.FuncType, *ast.StructType, *ast.InterfaceType:
		return true
	case *ast.IndexExpr:
		return IsTypeExpr(x.X) && IsTypeExpr(x.Index)
	case *ast.IndexListExpr:
		if !IsTypeExpr(x.X) {
			return false
		}
		for _, idx := range x.Indices {
			if !IsTypeExpr(idx) {
				return false
			}
		}
		return true
	}
	return false
}

func (p *declParser) parseSerializer() (Serializer, error) {
	t := p.peek()
	if t.tok == token.IDENT && t.lit == "NONE" {
		switch p.peekAt(1).tok {
		case token.COMMA, token.RPAREN, token.EOF:
			p.next()
			return Serializer{Kind: SerializerNone}, nil
		}
	}
	e, err := p.parseExpr()
	if err != nil {
		return Serializer{}, err
	}
	switch e.Expr.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.FuncLit, *ast.IndexExpr, *ast.IndexListExpr:
	default:
		return Serializer{}, p.errorf(t, diag.Grammar, "serializer should be NONE or a function, found %q", e.Text)
	}
	return Serializer{Kind: SerializerCustom, Expr: e}, nil
}

func (p *declParser) parseMIME() (catalog.MIME, error) {
	t := p.next()
	switch t.tok {
	case token.STRING:
		s, err := strconv.Unquote(t.lit)
		if err != nil {
			return "", p.errorf(t, diag.Grammar, "invalid string literal: %v", err)
		}
		m, err := catalog.ParseMIME(s)
		if err != nil {
			return "", p.errorf(t, diag.UnknownMIME, "invalid mime string: %v", err)
		}
		return m, nil
	case token.IDENT:
		if m, ok := catalog.MIMEBySymbol(t.lit); ok {
			return m, nil
		}
	}
	return "", p.errorf(t, diag.UnknownMIME, "unexpected mime type, should be a string or a constant such as APPLICATION_JSON")
}

const headerErr = "unexpected header name, should be a well-known header constant such as SET_COOKIE"

func (p *declParser) parseHeaders() ([]HeaderDoc, error) {
	if _, err := p.expect(token.LBRACK); err != nil {
		return nil, err
	}
	var out []HeaderDoc
	for p.peek().tok != token.RBRACK {
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		name := p.next()
		if name.tok != token.IDENT {
			return nil, p.errorf(name, diag.UnknownHeader, headerErr)
		}
		h, ok := catalog.HeaderBySymbol(name.lit)
		if !ok {
			return nil, p.errorf(name, diag.UnknownHeader, headerErr)
		}
		doc := HeaderDoc{Header: h}
		done, err := p.fieldSep(token.RPAREN)
		if err != nil {
			return nil, err
		}
		if !done {
			if _, err := p.expectIdent("description", diag.Grammar); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.ASSIGN); err != nil {
				return nil, err
			}
			if doc.Description, err = p.parseString(); err != nil {
				return nil, err
			}
			if p.peek().tok == token.COMMA {
				p.next()
			}
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		out = append(out, doc)
		if p.peek().tok == token.RBRACK {
			break
		}
		if _, err := p.expect(token.COMMA); err != nil {
			return nil, err
		}
	}
	p.next()
	return out, nil
}

var placeholderRe = regexp.MustCompile(`\{([^{}]*)\}`)

// validatePath checks a ServeMux style path template.
func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("must start with /")
	}
	seen := map[string]bool{}
	matches := placeholderRe.FindAllStringSubmatchIndex(path, -1)
	for i, m := range matches {
		name := path[m[2]:m[3]]
		if name == "$" {
			if m[1] != len(path) {
				return fmt.Errorf("{$} must end the path")
			}
			continue
		}
		rest := strings.HasSuffix(name, "...")
		name = strings.TrimSuffix(name, "...")
		if !token.IsIdentifier(name) {
			return fmt.Errorf("placeholder {%s} is not a valid name", path[m[2]:m[3]])
		}
		if seen[name] {
			return fmt.Errorf("placeholder {%s} repeated", name)
		}
		seen[name] = true
		if rest && (i != len(matches)-1 || m[1] != len(path)) {
			return fmt.Errorf("{%s...} must be the last segment", name)
		}
	}
	stripped := placeholderRe.ReplaceAllString(path, "")
	if strings.ContainsAny(stripped, "{}") {
		return fmt.Errorf("unbalanced braces")
	}
	return nil
}

// PathParams lists the placeholder names of a path template in order.
func PathParams(path string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		if m[1] == "$" {
			continue
		}
		out = append(out, strings.TrimSuffix(m[1], "..."))
	}
	return out
}
