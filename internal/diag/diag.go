// Package diag holds the positional diagnostics reported while compiling
// route declarations.
package diag

import (
	"errors"
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// Code categorizes a diagnostic. Codes are stable and safe to match in tests.
type Code string

const (
	Grammar          Code = "grammar"
	UnknownMethod    Code = "unknown_method"
	UnknownStatus    Code = "unknown_status"
	UnknownHeader    Code = "unknown_header"
	UnknownMIME      Code = "unknown_mime"
	DuplicateField   Code = "duplicate_field"
	DuplicateStatus  Code = "duplicate_status"
	MissingField     Code = "missing_field"
	ExtractorPattern Code = "extractor_pattern"
	ExtractorType    Code = "extractor_type"
	ExtractorAttr    Code = "extractor_attr"
	MultiplePayloads Code = "multiple_payloads"
	PayloadPosition  Code = "payload_position"
	ReturnType       Code = "return_type"
	ReturnValue      Code = "return_value"
	InvalidPath      Code = "invalid_path"
)

// Error is a single diagnostic anchored at a source position.
type Error struct {
	Pos  token.Position
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() || e.Pos.Filename != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

// Errorf builds an *Error.
func Errorf(pos token.Position, code Code, format string, args ...any) *Error {
	return &Error{Pos: pos, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// List collects diagnostics from several declarations.
type List []*Error

func (l *List) Add(err *Error) { *l = append(*l, err) }

// Append adds err if it is (or wraps) an *Error or a List. Other errors are
// attached without a position.
func (l *List) Append(err error) {
	if err == nil {
		return
	}
	var list List
	if errors.As(err, &list) {
		*l = append(*l, list...)
		return
	}
	var e *Error
	if errors.As(err, &e) {
		l.Add(e)
		return
	}
	l.Add(&Error{Code: Grammar, Msg: err.Error()})
}

// Sort orders diagnostics by file, line and column.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i].Pos, l[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Err returns nil for an empty list.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// CodeOf extracts the code of the first diagnostic in err.
func CodeOf(err error) Code {
	var list List
	if errors.As(err, &list) && len(list) > 0 {
		return list[0].Code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
