package catalog

import "strings"

// Method is an HTTP request method accepted in route declarations.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	DELETE  Method = "DELETE"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	HEAD    Method = "HEAD"
	TRACE   Method = "TRACE"
)

var methods = []Method{GET, POST, DELETE, PUT, PATCH, CONNECT, OPTIONS, HEAD, TRACE}

// ParseMethod accepts only the upper-case method names.
func ParseMethod(s string) (Method, bool) {
	for _, m := range methods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// MethodList renders the accepted names for diagnostics.
func MethodList() string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// GoConst names the net/http constant for m, e.g. http.MethodGet.
func (m Method) GoConst() string {
	s := string(m)
	return "http.Method" + s[:1] + strings.ToLower(s[1:])
}
