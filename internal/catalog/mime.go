package catalog

import (
	"fmt"
	"mime"
	"strings"
)

// MIME is a validated media type as it appears in a Content-Type header.
type MIME string

var mimes = map[string]MIME{
	"STAR_STAR":                       "*/*",
	"TEXT_STAR":                       "text/*",
	"TEXT_PLAIN":                      "text/plain",
	"TEXT_PLAIN_UTF_8":                "text/plain; charset=utf-8",
	"TEXT_HTML":                       "text/html",
	"TEXT_HTML_UTF_8":                 "text/html; charset=utf-8",
	"TEXT_CSS":                        "text/css",
	"TEXT_CSS_UTF_8":                  "text/css; charset=utf-8",
	"TEXT_JAVASCRIPT":                 "text/javascript",
	"TEXT_XML":                        "text/xml",
	"TEXT_EVENT_STREAM":               "text/event-stream",
	"TEXT_CSV":                        "text/csv",
	"TEXT_CSV_UTF_8":                  "text/csv; charset=utf-8",
	"TEXT_TAB_SEPARATED_VALUES":       "text/tab-separated-values",
	"TEXT_TAB_SEPARATED_VALUES_UTF_8": "text/tab-separated-values; charset=utf-8",
	"TEXT_VCARD":                      "text/vcard",
	"IMAGE_STAR":                      "image/*",
	"IMAGE_JPEG":                      "image/jpeg",
	"IMAGE_GIF":                       "image/gif",
	"IMAGE_PNG":                       "image/png",
	"IMAGE_BMP":                       "image/bmp",
	"IMAGE_SVG":                       "image/svg+xml",
	"FONT_WOFF":                       "font/woff",
	"FONT_WOFF2":                      "font/woff2",
	"APPLICATION_JSON":                "application/json",
	"APPLICATION_JAVASCRIPT":          "application/javascript",
	"APPLICATION_JAVASCRIPT_UTF_8":    "application/javascript; charset=utf-8",
	"APPLICATION_WWW_FORM_URLENCODED": "application/x-www-form-urlencoded",
	"APPLICATION_OCTET_STREAM":        "application/octet-stream",
	"APPLICATION_MSGPACK":             "application/msgpack",
	"APPLICATION_PDF":                 "application/pdf",
	"APPLICATION_XML":                 "application/xml",
	"APPLICATION_YAML":                "application/yaml",
	"APPLICATION_PROBLEM_JSON":        "application/problem+json",
	"MULTIPART_FORM_DATA":             "multipart/form-data",
}

// Media types used as documentation defaults.
const (
	MIMEJSON        MIME = "application/json"
	MIMEOctetStream MIME = "application/octet-stream"
	MIMEMultipart   MIME = "multipart/form-data"
	MIMETextUTF8    MIME = "text/plain; charset=utf-8"
)

// MIMEBySymbol resolves a catalog constant such as APPLICATION_JSON.
func MIMEBySymbol(symbol string) (MIME, bool) {
	m, ok := mimes[symbol]
	return m, ok
}

// ParseMIME validates a literal media type of the form type/subtype[;params]
// and returns it in canonical form.
func ParseMIME(s string) (MIME, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty mime type")
	}
	mediaType, params, err := mime.ParseMediaType(s)
	if err != nil {
		return "", err
	}
	typ, sub, ok := strings.Cut(mediaType, "/")
	if !ok || typ == "" || sub == "" {
		return "", fmt.Errorf("mime type %q is missing a subtype", s)
	}
	return MIME(mime.FormatMediaType(mediaType, params)), nil
}

// MIMESymbols lists the catalog constant names, unordered.
func MIMESymbols() []string {
	out := make([]string, 0, len(mimes))
	for k := range mimes {
		out = append(out, k)
	}
	return out
}
