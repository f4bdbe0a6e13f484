package autoroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"strings"
)

// PartsExtractor reads request metadata without consuming the body.
type PartsExtractor interface {
	ExtractParts(r *http.Request) error
}

// BodyExtractor consumes the request body. A handler has at most one.
type BodyExtractor interface {
	ExtractBody(r *http.Request) error
}

// MaxMultipartMemory bounds the memory used by Multipart before spilling
// file parts to disk.
var MaxMultipartMemory int64 = 32 << 20

// ErrUnsupportedMediaType is wrapped by rejections of a request whose
// Content-Type does not match the extractor.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// RejectionError is returned by the built-in extractors when a request does
// not match what the handler expects.
type RejectionError struct {
	Source string // "path", "query", "body", "form"
	Field  string
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %s", e.Source, e.Field, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Err.Error())
}

func (e *RejectionError) Unwrap() error { return e.Err }

// StatusCode is 415 for a wrong content type and 400 otherwise.
func (e *RejectionError) StatusCode() int {
	if errors.Is(e.Err, ErrUnsupportedMediaType) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

// Reject answers a request whose extraction failed. Errors that expose a
// StatusCode method choose the status; anything else is a 400.
func Reject(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	http.Error(w, err.Error(), status)
}

func requireContentType(r *http.Request, match func(mediaType string) bool, want string) error {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !match(mt) {
		return &RejectionError{Source: "body", Err: fmt.Errorf("%w: expected request with `Content-Type: %s`", ErrUnsupportedMediaType, want)}
	}
	return nil
}

func isJSON(mt string) bool {
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}

// Json decodes a JSON request body into Value.
type Json[T any] struct {
	Value T
}

func (j *Json[T]) ExtractBody(r *http.Request) error {
	if err := requireContentType(r, isJSON, "application/json"); err != nil {
		return err
	}
	if err := json.NewDecoder(r.Body).Decode(&j.Value); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		return &RejectionError{Source: "body", Err: err}
	}
	return nil
}

// Body reads the raw request body.
type Body struct {
	Bytes []byte
}

func (b *Body) ExtractBody(r *http.Request) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return &RejectionError{Source: "body", Err: err}
	}
	b.Bytes = data
	return nil
}

// Multipart parses a multipart/form-data body and binds its fields to Value
// using `form` struct tags. File parts bind to *multipart.FileHeader and
// []*multipart.FileHeader fields.
type Multipart[T any] struct {
	Value T
}

func (m *Multipart[T]) ExtractBody(r *http.Request) error {
	if err := requireContentType(r, func(mt string) bool { return mt == "multipart/form-data" }, "multipart/form-data"); err != nil {
		return err
	}
	if err := r.ParseMultipartForm(MaxMultipartMemory); err != nil {
		return &RejectionError{Source: "form", Err: err}
	}
	rv := reflect.ValueOf(&m.Value).Elem()
	if rv.Kind() != reflect.Struct {
		return &RejectionError{Source: "form", Err: fmt.Errorf("cannot bind into %s", rv.Type())}
	}
	return bindForm(rv, r.MultipartForm)
}

// Path binds path wildcards. Struct types bind fields by `path` tag; any
// other type binds the single wildcard of the matched pattern.
type Path[T any] struct {
	Value T
}

func (p *Path[T]) ExtractParts(r *http.Request) error {
	rv := reflect.ValueOf(&p.Value).Elem()
	if isBindStruct(rv.Type()) {
		return bindStruct(rv, "path", func(name string) ([]string, bool) {
			v := r.PathValue(name)
			return []string{v}, v != ""
		})
	}
	names := Wildcards(r.Pattern)
	if len(names) != 1 {
		return &RejectionError{Source: "path", Err: fmt.Errorf("pattern %q has %d wildcards, binding into %s needs exactly one", r.Pattern, len(names), rv.Type())}
	}
	if err := setValue(rv, []string{r.PathValue(names[0])}); err != nil {
		return &RejectionError{Source: "path", Field: names[0], Err: err}
	}
	return nil
}

// Query binds query parameters to the fields of Value by `query` tag.
type Query[T any] struct {
	Value T
}

func (q *Query[T]) ExtractParts(r *http.Request) error {
	rv := reflect.ValueOf(&q.Value).Elem()
	if !isBindStruct(rv.Type()) {
		return &RejectionError{Source: "query", Err: fmt.Errorf("cannot bind into %s", rv.Type())}
	}
	query := r.URL.Query()
	return bindStruct(rv, "query", func(name string) ([]string, bool) {
		vs, ok := query[name]
		return vs, ok
	})
}

var wildcardRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Wildcards lists the wildcard names of a ServeMux pattern, skipping {$}.
func Wildcards(pattern string) []string {
	var out []string
	for _, m := range wildcardRe.FindAllStringSubmatch(pattern, -1) {
		if m[1] == "$" {
			continue
		}
		out = append(out, strings.TrimSuffix(m[1], "..."))
	}
	return out
}
