package autoroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Content types written when a response does not declare one.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeText        = "text/plain; charset=utf-8"
	ContentTypeOctetStream = "application/octet-stream"
)

// Response is a rendered response, ready to be written.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// Stream is copied after Body when set. It is closed after writing when
	// it implements io.Closer.
	Stream io.Reader
}

// Responder is implemented by every generated response variant.
type Responder interface {
	Respond() (*Response, error)
}

// ResponsePart modifies a response before it is written. Parts run in
// declaration order, after the body has been serialized.
type ResponsePart interface {
	ApplyPart(res *Response) error
}

func newResponse(status int, contentType string, body []byte) *Response {
	res := &Response{Status: status, Header: http.Header{}, Body: body}
	if contentType != "" {
		res.Header.Set("Content-Type", contentType)
	}
	return res
}

func finish(res *Response, contentType string, parts []ResponsePart) (*Response, error) {
	for i, p := range parts {
		if p == nil {
			continue
		}
		if err := p.ApplyPart(res); err != nil {
			return nil, fmt.Errorf("autoroute: apply response part %d (%T): %w", i, p, err)
		}
	}
	if contentType != "" {
		res.Header.Set("Content-Type", contentType)
	}
	return res, nil
}

// JSONResponse serializes body as JSON. A non-empty contentType replaces
// application/json.
func JSONResponse(status int, contentType string, body any, parts ...ResponsePart) (*Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("autoroute: encode %d response: %w", status, err)
	}
	return finish(newResponse(status, ContentTypeJSON, b), contentType, parts)
}

// ErrNotRaw is returned when a body type cannot be written without a
// serializer.
var ErrNotRaw = errors.New("body cannot be written raw")

// MustRawBody panics unless values of T can be written by RawResponse.
// Generated files call it at init for named raw bodies, so a body that could
// only fail at request time stops the program at startup instead.
func MustRawBody[T any]() struct{} {
	t := reflect.TypeFor[T]()
	if !rawType(t) {
		panic(fmt.Sprintf("autoroute: %v: %s", t, ErrNotRaw))
	}
	return struct{}{}
}

func rawType(t reflect.Type) bool {
	switch {
	case t == reflect.TypeFor[RawBody](), t.Kind() == reflect.Interface:
		return true
	case t.Implements(reflect.TypeFor[io.Reader]()):
		return true
	case t.Kind() == reflect.String:
		return true
	}
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// RawResponse writes body without serialization. Strings are sent as
// text/plain; byte slices, readers and RawBody as application/octet-stream.
func RawResponse(status int, contentType string, body any, parts ...ResponsePart) (*Response, error) {
	var res *Response
	switch v := body.(type) {
	case string:
		res = newResponse(status, ContentTypeText, []byte(v))
	case []byte:
		res = newResponse(status, ContentTypeOctetStream, v)
	case RawBody:
		res = newResponse(status, ContentTypeOctetStream, nil)
		res.Stream = v.Reader
		if v.Size >= 0 {
			res.Header.Set("Content-Length", strconv.FormatInt(v.Size, 10))
		}
	case io.Reader:
		res = newResponse(status, ContentTypeOctetStream, nil)
		res.Stream = v
	case nil:
		res = newResponse(status, "", nil)
	default:
		rv := reflect.ValueOf(body)
		switch {
		case rv.Kind() == reflect.String:
			res = newResponse(status, ContentTypeText, []byte(rv.String()))
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			res = newResponse(status, ContentTypeOctetStream, rv.Bytes())
		default:
			return nil, fmt.Errorf("autoroute: %d response of type %T: %w", status, body, ErrNotRaw)
		}
	}
	return finish(res, contentType, parts)
}

// SerializedResponse writes the output of a custom serializer. The content
// type defaults to application/octet-stream.
func SerializedResponse(status int, contentType string, serialize func() ([]byte, error), parts ...ResponsePart) (*Response, error) {
	b, err := serialize()
	if err != nil {
		return nil, fmt.Errorf("autoroute: serialize %d response: %w", status, err)
	}
	return finish(newResponse(status, ContentTypeOctetStream, b), contentType, parts)
}

// YAML is a serializer for responses declared with serializer=autoroute.YAML.
func YAML(v any) ([]byte, error) { return yaml.Marshal(v) }

// Write renders res and writes it to w. Render failures are logged and
// answered with 500.
func Write(w http.ResponseWriter, res Responder) {
	if res == nil {
		Logger().Error("autoroute: handler returned no response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	out, err := res.Respond()
	if err != nil {
		Logger().Error("autoroute: render response", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := out.Write(w); err != nil {
		Logger().Debug("autoroute: write response", "err", err)
	}
}

// Write sends the response. Bodies of statuses that do not allow one are
// dropped.
func (res *Response) Write(w http.ResponseWriter) error {
	if c, ok := res.Stream.(io.Closer); ok {
		defer c.Close()
	}
	h := w.Header()
	for k, vs := range res.Header {
		h[k] = append([]string(nil), vs...)
	}
	w.WriteHeader(res.Status)
	if !bodyAllowed(res.Status) {
		return nil
	}
	if len(res.Body) > 0 {
		if _, err := w.Write(res.Body); err != nil {
			return err
		}
	}
	if res.Stream != nil {
		if _, err := io.Copy(w, res.Stream); err != nil {
			return err
		}
	}
	return nil
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// RawBody is a raw response body with an optional size hint.
type RawBody struct {
	Reader io.Reader
	// Size is the length in bytes, or -1 when unknown.
	Size int64
}

// NewRawBody wraps r with an unknown size.
func NewRawBody(r io.Reader) RawBody { return RawBody{Reader: r, Size: -1} }

func (b RawBody) String() string {
	if b.Size < 0 {
		return "RawBody(unknown size)"
	}
	return "RawBody(" + humanize.Bytes(uint64(b.Size)) + ")"
}

// Header sets a single response header.
type Header struct {
	Name  string
	Value string
}

func (p Header) ApplyPart(res *Response) error {
	if p.Name == "" {
		return errors.New("empty header name")
	}
	res.Header.Set(p.Name, p.Value)
	return nil
}

// Headers adds every value to the response headers.
type Headers http.Header

func (p Headers) ApplyPart(res *Response) error {
	for k, vs := range p {
		for _, v := range vs {
			res.Header.Add(k, v)
		}
	}
	return nil
}

// Cookie adds a Set-Cookie header.
type Cookie http.Cookie

func (p Cookie) ApplyPart(res *Response) error {
	c := http.Cookie(p)
	if err := c.Valid(); err != nil {
		return err
	}
	res.Header.Add("Set-Cookie", c.String())
	return nil
}

// PartFunc adapts a function to ResponsePart.
type PartFunc func(res *Response) error

func (f PartFunc) ApplyPart(res *Response) error { return f(res) }
