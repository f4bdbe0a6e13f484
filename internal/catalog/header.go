package catalog

import (
	"net/textproto"
	"strings"
)

// Header is a well-known HTTP header.
type Header struct {
	Symbol string // SET_COOKIE
	Name   string // Set-Cookie
}

var headerSymbols = []string{
	"ACCEPT",
	"ACCEPT_CHARSET",
	"ACCEPT_ENCODING",
	"ACCEPT_LANGUAGE",
	"ACCEPT_RANGES",
	"ACCESS_CONTROL_ALLOW_CREDENTIALS",
	"ACCESS_CONTROL_ALLOW_HEADERS",
	"ACCESS_CONTROL_ALLOW_METHODS",
	"ACCESS_CONTROL_ALLOW_ORIGIN",
	"ACCESS_CONTROL_EXPOSE_HEADERS",
	"ACCESS_CONTROL_MAX_AGE",
	"ACCESS_CONTROL_REQUEST_HEADERS",
	"ACCESS_CONTROL_REQUEST_METHOD",
	"AGE",
	"ALLOW",
	"ALT_SVC",
	"AUTHORIZATION",
	"CACHE_CONTROL",
	"CACHE_STATUS",
	"CDN_CACHE_CONTROL",
	"CONNECTION",
	"CONTENT_DISPOSITION",
	"CONTENT_ENCODING",
	"CONTENT_LANGUAGE",
	"CONTENT_LENGTH",
	"CONTENT_LOCATION",
	"CONTENT_RANGE",
	"CONTENT_SECURITY_POLICY",
	"CONTENT_SECURITY_POLICY_REPORT_ONLY",
	"CONTENT_TYPE",
	"COOKIE",
	"DNT",
	"DATE",
	"ETAG",
	"EXPECT",
	"EXPIRES",
	"FORWARDED",
	"FROM",
	"HOST",
	"IF_MATCH",
	"IF_MODIFIED_SINCE",
	"IF_NONE_MATCH",
	"IF_RANGE",
	"IF_UNMODIFIED_SINCE",
	"LAST_MODIFIED",
	"LINK",
	"LOCATION",
	"MAX_FORWARDS",
	"ORIGIN",
	"PRAGMA",
	"PROXY_AUTHENTICATE",
	"PROXY_AUTHORIZATION",
	"PUBLIC_KEY_PINS",
	"PUBLIC_KEY_PINS_REPORT_ONLY",
	"RANGE",
	"REFERER",
	"REFERRER_POLICY",
	"REFRESH",
	"RETRY_AFTER",
	"SEC_WEBSOCKET_ACCEPT",
	"SEC_WEBSOCKET_EXTENSIONS",
	"SEC_WEBSOCKET_KEY",
	"SEC_WEBSOCKET_PROTOCOL",
	"SEC_WEBSOCKET_VERSION",
	"SERVER",
	"SET_COOKIE",
	"STRICT_TRANSPORT_SECURITY",
	"TE",
	"TRAILER",
	"TRANSFER_ENCODING",
	"UPGRADE",
	"UPGRADE_INSECURE_REQUESTS",
	"USER_AGENT",
	"VARY",
	"VIA",
	"WARNING",
	"WWW_AUTHENTICATE",
	"X_CONTENT_TYPE_OPTIONS",
	"X_DNS_PREFETCH_CONTROL",
	"X_FRAME_OPTIONS",
	"X_XSS_PROTECTION",
}

var headers = make(map[string]Header, len(headerSymbols))

func init() {
	for _, sym := range headerSymbols {
		headers[sym] = Header{Symbol: sym, Name: HeaderName(sym)}
	}
}

// HeaderBySymbol resolves an upper-snake header name. Names that are not
// upper-snake or not in the catalog are rejected.
func HeaderBySymbol(symbol string) (Header, bool) {
	if !IsUpperSnake(symbol) {
		return Header{}, false
	}
	h, ok := headers[symbol]
	return h, ok
}

// HeaderName converts an upper-snake symbol to its canonical wire name.
func HeaderName(symbol string) string {
	kebab := strings.ToLower(strings.ReplaceAll(symbol, "_", "-"))
	return textproto.CanonicalMIMEHeaderKey(kebab)
}

// IsUpperSnake reports whether s looks like FOO_BAR_2.
func IsUpperSnake(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	prevUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			prevUnderscore = false
		case c == '_':
			if prevUnderscore {
				return false
			}
			prevUnderscore = true
		default:
			return false
		}
	}
	return !prevUnderscore
}
