package autoroute_test

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/autoroute"
)

// serve routes req through a ServeMux registered with pattern so that path
// wildcards are populated, and runs extract inside the handler.
func serve(t *testing.T, pattern string, req *http.Request, extract func(r *http.Request) error) (int, error) {
	t.Helper()
	var got error
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if got = extract(r); got != nil {
			autoroute.Reject(w, got)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec.Code, got
}

type itemPath struct {
	Shop string `path:"shop"`
	ID   uint16 `path:"id"`
}

func TestPath(t *testing.T) {
	t.Parallel()

	var p autoroute.Path[itemPath]
	code, err := serve(t, "GET /shops/{shop}/items/{id}", httptest.NewRequest("GET", "/shops/north/items/12", nil), p.ExtractParts)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("extract: %d %v", code, err)
	}
	if diff := cmp.Diff(itemPath{Shop: "north", ID: 12}, p.Value); diff != "" {
		t.Errorf("value (-want +got):\n%s", diff)
	}

	var bad autoroute.Path[itemPath]
	code, err = serve(t, "GET /shops/{shop}/items/{id}", httptest.NewRequest("GET", "/shops/north/items/big", nil), bad.ExtractParts)
	var rej *autoroute.RejectionError
	if !errors.As(err, &rej) || rej.Source != "path" || rej.Field != "id" || code != http.StatusBadRequest {
		t.Fatalf("expected path rejection, got %d %v", code, err)
	}
}

func TestPath_Scalar(t *testing.T) {
	t.Parallel()

	var id autoroute.Path[int64]
	if _, err := serve(t, "GET /items/{id}", httptest.NewRequest("GET", "/items/-7", nil), id.ExtractParts); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id.Value != -7 {
		t.Errorf("got %d", id.Value)
	}

	var rest autoroute.Path[string]
	if _, err := serve(t, "GET /files/{path...}", httptest.NewRequest("GET", "/files/a/b.txt", nil), rest.ExtractParts); err != nil || rest.Value != "a/b.txt" {
		t.Errorf("wildcard: %q %v", rest.Value, err)
	}

	var two autoroute.Path[string]
	if _, err := serve(t, "GET /{a}/{b}", httptest.NewRequest("GET", "/x/y", nil), two.ExtractParts); err == nil {
		t.Errorf("expected error for a scalar bound to two wildcards")
	}
}

type listQuery struct {
	Limit  int           `query:"limit"`
	Cursor *string       `query:"cursor"`
	Tags   []string      `query:"tag"`
	Since  time.Time     `query:"since,omitempty"`
	Wait   time.Duration `query:"wait"`
	Debug  bool          `query:"-"`
}

func TestQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/items?limit=5&tag=a&tag=b&since=2024-01-02T03:04:05Z&wait=1s", nil)
	var q autoroute.Query[listQuery]
	if err := q.ExtractParts(req); err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := listQuery{
		Limit: 5,
		Tags:  []string{"a", "b"},
		Since: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Wait:  time.Second,
	}
	if diff := cmp.Diff(want, q.Value); diff != "" {
		t.Errorf("value (-want +got):\n%s", diff)
	}

	tests := map[string]string{
		"missing required": "/items?since=2024-01-02T03:04:05Z&wait=1s",
		"malformed int":    "/items?limit=x&since=2024-01-02T03:04:05Z&wait=1s",
		"malformed time":   "/items?limit=1&since=yesterday&wait=1s",
	}
	for name, target := range tests {
		var q autoroute.Query[listQuery]
		err := q.ExtractParts(httptest.NewRequest("GET", target, nil))
		var rej *autoroute.RejectionError
		if !errors.As(err, &rej) || rej.Source != "query" || rej.StatusCode() != http.StatusBadRequest {
			t.Errorf("%s: expected query rejection, got %v", name, err)
		}
	}

	var missing autoroute.Query[listQuery]
	err := missing.ExtractParts(httptest.NewRequest("GET", "/items", nil))
	if !errors.Is(err, autoroute.ErrMissing) || !strings.Contains(err.Error(), "query limit") {
		t.Errorf("expected missing limit, got %v", err)
	}

	var scalar autoroute.Query[int]
	if err := scalar.ExtractParts(httptest.NewRequest("GET", "/?x=1", nil)); err == nil {
		t.Errorf("expected error for a non-struct query")
	}
}

type newItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJson(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/items", strings.NewReader(`{"name":"a","count":2}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	var body autoroute.Json[newItem]
	if err := body.ExtractBody(req); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if body.Value != (newItem{Name: "a", Count: 2}) {
		t.Errorf("got %+v", body.Value)
	}

	vendor := httptest.NewRequest("POST", "/items", strings.NewReader(`{}`))
	vendor.Header.Set("Content-Type", "application/vnd.api+json")
	if err := new(autoroute.Json[newItem]).ExtractBody(vendor); err != nil {
		t.Errorf("+json suffix: %v", err)
	}

	tests := []struct {
		name   string
		ct     string
		body   string
		status int
	}{
		{"wrong content type", "text/plain", `{}`, http.StatusUnsupportedMediaType},
		{"no content type", "", `{}`, http.StatusUnsupportedMediaType},
		{"invalid json", "application/json", `{"name":`, http.StatusBadRequest},
		{"empty body", "application/json", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/items", strings.NewReader(tt.body))
		if tt.ct != "" {
			req.Header.Set("Content-Type", tt.ct)
		}
		rec := httptest.NewRecorder()
		if err := new(autoroute.Json[newItem]).ExtractBody(req); err != nil {
			autoroute.Reject(rec, err)
		}
		if rec.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.name, rec.Code, tt.status)
		}
	}
}

func TestBody(t *testing.T) {
	t.Parallel()

	var b autoroute.Body
	if err := b.ExtractBody(httptest.NewRequest("PUT", "/blob", strings.NewReader("raw bytes"))); err != nil {
		t.Fatal(err)
	}
	if string(b.Bytes) != "raw bytes" {
		t.Errorf("got %q", b.Bytes)
	}
}

type upload struct {
	Title string                  `form:"title"`
	File  *multipart.FileHeader   `form:"file"`
	Extra []*multipart.FileHeader `form:"extra"`
}

func TestMultipart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", "report"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, "contents"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var m autoroute.Multipart[upload]
	if err := m.ExtractBody(req); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if m.Value.Title != "report" || m.Value.File == nil || m.Value.File.Filename != "report.txt" || m.Value.Extra != nil {
		t.Fatalf("got %+v", m.Value)
	}

	plain := httptest.NewRequest("POST", "/upload", strings.NewReader("title=x"))
	plain.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var rej *autoroute.RejectionError
	if err := new(autoroute.Multipart[upload]).ExtractBody(plain); !errors.As(err, &rej) || rej.StatusCode() != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 rejection, got %v", err)
	}
}

type statusErr struct{}

func (statusErr) Error() string   { return "teapot" }
func (statusErr) StatusCode() int { return http.StatusTeapot }

func TestReject(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	autoroute.Reject(rec, errors.New("plain"))
	if rec.Code != http.StatusBadRequest || strings.TrimSpace(rec.Body.String()) != "plain" {
		t.Errorf("plain: %d %q", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	autoroute.Reject(rec, statusErr{})
	if rec.Code != http.StatusTeapot {
		t.Errorf("status error: %d", rec.Code)
	}
}

func TestWildcards(t *testing.T) {
	t.Parallel()

	got := autoroute.Wildcards("GET /shops/{shop}/files/{path...}")
	if diff := cmp.Diff([]string{"shop", "path"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := autoroute.Wildcards("/{$}"); len(got) != 0 {
		t.Errorf("{$} reported: %v", got)
	}
}
