package oops

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-stack/stack"
	"github.com/rs/zerolog"
)

// Error is an error that knows which HTTP status it should be reported with.
// Fields carries per-field validation messages for 406 responses.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
	Wrapped error
	Stack   CallStack
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

type CallStack []StackFrame

func (s CallStack) MarshalZerologArray(a *zerolog.Array) {
	for _, frame := range s {
		a.Object(frame)
	}
}

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) MarshalZerologObject(e *zerolog.Event) {
	e.
		Str("file", f.File).
		Int("line", f.Line).
		Str("function", f.Function)
}

var ZerologStackMarshaler = func(err error) interface{} {
	if asOops, ok := err.(*Error); ok {
		return asOops.Stack
	}
	return nil
}

func trace() CallStack {
	calls := stack.Trace().TrimRuntime()
	// drop this helper and the exported constructor
	if len(calls) > 2 {
		calls = calls[2:]
	}
	frames := make(CallStack, len(calls))
	for i, call := range calls {
		callFrame := call.Frame()
		frames[i] = StackFrame{
			File:     callFrame.File,
			Line:     callFrame.Line,
			Function: callFrame.Function,
		}
	}
	return frames
}

// New wraps an unexpected failure. It is reported as a 500.
func New(wrapped error, format string, args ...interface{}) error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf(format, args...),
		Wrapped: wrapped,
		Stack:   trace(),
	}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...), Stack: trace()}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...), Stack: trace()}
}

// Invalid is a malformed request: bad identifiers, inconsistent ancestors.
func Invalid(format string, args ...interface{}) error {
	return &Error{Status: http.StatusNotAcceptable, Message: fmt.Sprintf(format, args...), Stack: trace()}
}

func Unauthorized(format string, args ...interface{}) error {
	return &Error{Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...), Stack: trace()}
}

// Validation reports shape errors keyed by JSON field name.
func Validation(fields map[string]string) error {
	return &Error{
		Status:  http.StatusNotAcceptable,
		Message: "Validation failed",
		Fields:  fields,
		Stack:   trace(),
	}
}

// StatusOf returns the HTTP status an error should be reported with.
func StatusOf(err error) int {
	var asOops *Error
	if errors.As(err, &asOops) {
		return asOops.Status
	}
	return http.StatusInternalServerError
}
