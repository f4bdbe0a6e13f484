package catalog

import (
	"sort"
	"strconv"
)

// Status is a well-known HTTP status code.
type Status struct {
	Code int
	// Symbol is the upper-snake name accepted in declarations, e.g. NOT_FOUND.
	Symbol string
	// Ident is the Go identifier fragment used in generated names, e.g. NotFound.
	Ident string
}

func (s Status) String() string {
	return strconv.Itoa(s.Code) + ":" + s.Symbol
}

var statuses = []Status{
	{100, "CONTINUE", "Continue"},
	{101, "SWITCHING_PROTOCOLS", "SwitchingProtocols"},
	{102, "PROCESSING", "Processing"},
	{200, "OK", "OK"},
	{201, "CREATED", "Created"},
	{202, "ACCEPTED", "Accepted"},
	{203, "NON_AUTHORITATIVE_INFORMATION", "NonAuthoritativeInformation"},
	{204, "NO_CONTENT", "NoContent"},
	{205, "RESET_CONTENT", "ResetContent"},
	{206, "PARTIAL_CONTENT", "PartialContent"},
	{207, "MULTI_STATUS", "MultiStatus"},
	{208, "ALREADY_REPORTED", "AlreadyReported"},
	{226, "IM_USED", "IMUsed"},
	{300, "MULTIPLE_CHOICES", "MultipleChoices"},
	{301, "MOVED_PERMANENTLY", "MovedPermanently"},
	{302, "FOUND", "Found"},
	{303, "SEE_OTHER", "SeeOther"},
	{304, "NOT_MODIFIED", "NotModified"},
	{305, "USE_PROXY", "UseProxy"},
	{307, "TEMPORARY_REDIRECT", "TemporaryRedirect"},
	{308, "PERMANENT_REDIRECT", "PermanentRedirect"},
	{400, "BAD_REQUEST", "BadRequest"},
	{401, "UNAUTHORIZED", "Unauthorized"},
	{402, "PAYMENT_REQUIRED", "PaymentRequired"},
	{403, "FORBIDDEN", "Forbidden"},
	{404, "NOT_FOUND", "NotFound"},
	{405, "METHOD_NOT_ALLOWED", "MethodNotAllowed"},
	{406, "NOT_ACCEPTABLE", "NotAcceptable"},
	{407, "PROXY_AUTHENTICATION_REQUIRED", "ProxyAuthenticationRequired"},
	{408, "REQUEST_TIMEOUT", "RequestTimeout"},
	{409, "CONFLICT", "Conflict"},
	{410, "GONE", "Gone"},
	{411, "LENGTH_REQUIRED", "LengthRequired"},
	{412, "PRECONDITION_FAILED", "PreconditionFailed"},
	{413, "PAYLOAD_TOO_LARGE", "PayloadTooLarge"},
	{414, "URI_TOO_LONG", "URITooLong"},
	{415, "UNSUPPORTED_MEDIA_TYPE", "UnsupportedMediaType"},
	{416, "RANGE_NOT_SATISFIABLE", "RangeNotSatisfiable"},
	{417, "EXPECTATION_FAILED", "ExpectationFailed"},
	{418, "IM_A_TEAPOT", "ImATeapot"},
	{421, "MISDIRECTED_REQUEST", "MisdirectedRequest"},
	{422, "UNPROCESSABLE_ENTITY", "UnprocessableEntity"},
	{423, "LOCKED", "Locked"},
	{424, "FAILED_DEPENDENCY", "FailedDependency"},
	{425, "TOO_EARLY", "TooEarly"},
	{426, "UPGRADE_REQUIRED", "UpgradeRequired"},
	{428, "PRECONDITION_REQUIRED", "PreconditionRequired"},
	{429, "TOO_MANY_REQUESTS", "TooManyRequests"},
	{431, "REQUEST_HEADER_FIELDS_TOO_LARGE", "RequestHeaderFieldsTooLarge"},
	{451, "UNAVAILABLE_FOR_LEGAL_REASONS", "UnavailableForLegalReasons"},
	{500, "INTERNAL_SERVER_ERROR", "InternalServerError"},
	{501, "NOT_IMPLEMENTED", "NotImplemented"},
	{502, "BAD_GATEWAY", "BadGateway"},
	{503, "SERVICE_UNAVAILABLE", "ServiceUnavailable"},
	{504, "GATEWAY_TIMEOUT", "GatewayTimeout"},
	{505, "HTTP_VERSION_NOT_SUPPORTED", "HTTPVersionNotSupported"},
	{506, "VARIANT_ALSO_NEGOTIATES", "VariantAlsoNegotiates"},
	{507, "INSUFFICIENT_STORAGE", "InsufficientStorage"},
	{508, "LOOP_DETECTED", "LoopDetected"},
	{510, "NOT_EXTENDED", "NotExtended"},
	{511, "NETWORK_AUTHENTICATION_REQUIRED", "NetworkAuthenticationRequired"},
}

var (
	statusByCode   = make(map[int]Status, len(statuses))
	statusBySymbol = make(map[string]Status, len(statuses))
	statusByIdent  = make(map[string]Status, len(statuses))
)

func init() {
	for _, s := range statuses {
		statusByCode[s.Code] = s
		statusBySymbol[s.Symbol] = s
		statusByIdent[s.Ident] = s
	}
}

// StatusByCode resolves a numeric code. Codes outside the catalog are rejected
// even when they fall in a valid range.
func StatusByCode(code int) (Status, bool) {
	s, ok := statusByCode[code]
	return s, ok
}

// StatusBySymbol resolves an upper-snake status name.
func StatusBySymbol(symbol string) (Status, bool) {
	s, ok := statusBySymbol[symbol]
	return s, ok
}

// StatusByIdent resolves the Go form of a status name, e.g. NotFound.
func StatusByIdent(ident string) (Status, bool) {
	s, ok := statusByIdent[ident]
	return s, ok
}

// Statuses returns the catalog ordered by code.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
