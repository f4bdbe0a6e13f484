package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/autoroute/internal/catalog"
)

// RuntimePath is the import path of the runtime package that defines the
// built-in extractors.
const RuntimePath = "github.com/mark3labs/autoroute"

// Role tells whether an extractor consumes the request body.
type Role int

const (
	RoleMetadata Role = iota
	RolePayload
)

func (r Role) String() string {
	if r == RolePayload {
		return "payload"
	}
	return "metadata"
}

// ParseRole accepts "payload" or "metadata".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "payload", "body":
		return RolePayload, nil
	case "metadata", "parts", "":
		return RoleMetadata, nil
	}
	return RoleMetadata, fmt.Errorf("unknown extractor role %q (allowed: payload, metadata)", s)
}

// Kind describes the fixed capabilities of a known extractor type.
type Kind struct {
	Name       string
	ImportPath string
	Role       Role
	// ContentTypes documents the request body of payload kinds.
	ContentTypes []catalog.MIME
	// RawBody documents the payload as raw bytes instead of the inner type.
	RawBody bool
	// IntoParams documents the inner type as request parameters.
	IntoParams bool
	// ParamIn is the OpenAPI parameter location for IntoParams kinds.
	ParamIn string
	// ValueField is the field holding the extracted value, used by
	// positional destructuring patterns. Empty means positional patterns are
	// not supported.
	ValueField string
	Builtin    bool
}

// Key identifies a kind as importpath.Name. Kinds declared in the handler's
// own package use an empty import path.
func (k Kind) Key() string { return kindKey(k.ImportPath, k.Name) }

func kindKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// Registry resolves parameter types to known kinds.
type Registry struct {
	kinds map[string]*Kind
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{kinds: map[string]*Kind{}}
	for _, k := range builtinKinds() {
		r.kinds[k.Key()] = &k
	}
	return r
}

func builtinKinds() []Kind {
	return []Kind{
		{Name: "Json", ImportPath: RuntimePath, Role: RolePayload, ContentTypes: []catalog.MIME{catalog.MIMEJSON}, ValueField: "Value", Builtin: true},
		{Name: "Body", ImportPath: RuntimePath, Role: RolePayload, ContentTypes: []catalog.MIME{catalog.MIMEOctetStream}, RawBody: true, ValueField: "Bytes", Builtin: true},
		{Name: "Multipart", ImportPath: RuntimePath, Role: RolePayload, ContentTypes: []catalog.MIME{catalog.MIMEMultipart}, ValueField: "Value", Builtin: true},
		{Name: "Path", ImportPath: RuntimePath, Role: RoleMetadata, IntoParams: true, ParamIn: "path", ValueField: "Value", Builtin: true},
		{Name: "Query", ImportPath: RuntimePath, Role: RoleMetadata, IntoParams: true, ParamIn: "query", ValueField: "Value", Builtin: true},
	}
}

// ParseKindKey splits "example.com/pkg.Name" into import path and name.
// A bare "Name" refers to the handler's own package.
func ParseKindKey(s string) (path, name string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("empty extractor type")
	}
	slash := strings.LastIndex(s, "/")
	dot := strings.LastIndex(s, ".")
	if dot <= slash {
		return "", s, nil
	}
	return s[:dot], s[dot+1:], nil
}

// Register adds a user kind. Built-in kinds cannot be replaced.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" {
		return fmt.Errorf("extractor kind without a name")
	}
	if have, ok := r.kinds[k.Key()]; ok && have.Builtin {
		return fmt.Errorf("extractor %s is built in and cannot be redefined", k.Key())
	}
	if k.Role == RolePayload && len(k.ContentTypes) == 0 {
		k.ContentTypes = []catalog.MIME{catalog.MIMEOctetStream}
	}
	k.Builtin = false
	r.kinds[k.Key()] = &k
	return nil
}

// Lookup returns nil for unknown types.
func (r *Registry) Lookup(importPath, name string) *Kind {
	return r.kinds[kindKey(importPath, name)]
}

// Keys lists the registered kinds in order.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
