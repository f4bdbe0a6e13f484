package decl

import (
	"go/token"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/diag"
)

// ParseExtractor parses an extractor directive: the parameter name followed
// by comma separated attributes.
func ParseExtractor(src *Source) (*ExtractorAttr, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	name := p.next()
	if name.tok != token.IDENT {
		return nil, p.errorf(name, diag.Grammar, "expected parameter name, found `%s`", name)
	}
	attr := &ExtractorAttr{Pos: p.at(name), Param: name.lit}

	var contentTypeTok, intoParamsTok *tok
	first := true
	for p.peek().tok != token.EOF {
		if !first {
			if _, err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
			if p.peek().tok == token.EOF {
				break
			}
		}
		first = false

		key := p.next()
		if key.tok != token.IDENT {
			return nil, p.errorf(key, diag.Grammar, "expected one of: trace, content_type, into_params, bind")
		}
		if _, err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		switch key.lit {
		case "trace":
			if attr.Trace != nil {
				return nil, p.errorf(key, diag.DuplicateField, "trace already defined")
			}
			v, err := p.parseBool()
			if err != nil {
				return nil, err
			}
			attr.Trace = &v
		case "into_params":
			if attr.IntoParams != nil {
				return nil, p.errorf(key, diag.DuplicateField, "into_params already defined")
			}
			if contentTypeTok != nil {
				return nil, p.errorf(key, diag.ExtractorAttr, "into_params cannot be defined in an extractor attribute containing content_type")
			}
			v, err := p.parseBool()
			if err != nil {
				return nil, err
			}
			k := key
			intoParamsTok = &k
			attr.IntoParams = &v
		case "content_type":
			if intoParamsTok != nil {
				return nil, p.errorf(key, diag.ExtractorAttr, "content_type cannot be defined in an extractor attribute containing into_params")
			}
			m, err := p.parseMIME()
			if err != nil {
				return nil, err
			}
			k := key
			contentTypeTok = &k
			attr.ContentTypes = appendMIME(attr.ContentTypes, m)
		case "bind":
			if attr.Bind != nil {
				return nil, p.errorf(key, diag.DuplicateField, "bind already defined")
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			attr.Bind = e
		default:
			return nil, p.errorf(key, diag.Grammar, "expected one of: trace, content_type, into_params, bind")
		}
	}
	return attr, nil
}

func appendMIME(list []catalog.MIME, m catalog.MIME) []catalog.MIME {
	for _, have := range list {
		if have == m {
			return list
		}
	}
	return append(list, m)
}
