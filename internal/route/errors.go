package route

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError ErrorCode = "InputError"
	ParseError ErrorCode = "ParseError"
	// DeclError means one or more handler declarations were rejected. The
	// cause is a diag.List.
	DeclError ErrorCode = "DeclError"
)

// LoadError is a structured error with an optional location.
type LoadError struct {
	Code     ErrorCode
	Message  string
	Location string // file or directory
	Cause    error
}

func (e *LoadError) Error() string { return e.Message }
func (e *LoadError) Unwrap() error { return e.Cause }
