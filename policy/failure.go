package policy

import (
	"fmt"
	"strings"
)

// Failure is a structured error raised by process behaviors. It carries a
// type name, the declared super types of that name, an optional code and
// the error it wraps.
type Failure struct {
	Type       string
	SuperTypes []string
	Message    string
	Code       string
	Cause      error
}

// Error returns the failure message followed by the cause, when present
func (f *Failure) Error() string {
	message := f.Message
	if message == "" {
		message = f.Type
	}
	if f.Cause == nil {
		return message
	}
	if message == "" {
		return f.Cause.Error()
	}
	return message + ": " + f.Cause.Error()
}

// Unwrap returns the cause
func (f *Failure) Unwrap() error {
	return f.Cause
}

// TypeName returns the declared type name
func (f *Failure) TypeName() string {
	return f.Type
}

// SuperTypeNames returns the declared ancestors, closest first
func (f *Failure) SuperTypeNames() []string {
	return f.SuperTypes
}

// ErrorCode returns the structured error code
func (f *Failure) ErrorCode() string {
	return f.Code
}

// NewFailure creates a failure of the given type
func NewFailure(typeName, message string, superTypes ...string) *Failure {
	return &Failure{Type: typeName, Message: message, SuperTypes: superTypes}
}

// WithCause sets the wrapped error
func (f *Failure) WithCause(cause error) *Failure {
	f.Cause = cause
	return f
}

// WithCode sets the structured error code
func (f *Failure) WithCode(code string) *Failure {
	f.Code = code
	return f
}

type (
	typed interface {
		TypeName() string
	}

	hierarchical interface {
		SuperTypeNames() []string
	}

	coded interface {
		ErrorCode() string
	}
)

// TypeName returns the type name of err: the declared name for errors that
// expose one, the Go dynamic type otherwise.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	if t, ok := err.(typed); ok {
		if name := t.TypeName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", err)
}

// ErrorCode returns the first structured code found on err or its causes
func ErrorCode(err error) (string, bool) {
	var code string
	walk(err, func(err error) bool {
		if c, ok := err.(coded); ok {
			code = strings.TrimSpace(c.ErrorCode())
		}
		return code != ""
	})
	return code, code != ""
}

const maxDepth = 64

// walk visits err and every wrapped cause depth first, stopping when visit
// returns true. Both single and multi error unwrapping are followed.
func walk(err error, visit func(err error) bool) bool {
	return walkDepth(err, visit, 0)
}

func walkDepth(err error, visit func(err error) bool, depth int) bool {
	if err == nil || depth > maxDepth {
		return false
	}
	if visit(err) {
		return true
	}
	switch actual := err.(type) {
	case interface{ Unwrap() error }:
		return walkDepth(actual.Unwrap(), visit, depth+1)
	case interface{ Unwrap() []error }:
		for _, cause := range actual.Unwrap() {
			if walkDepth(cause, visit, depth+1) {
				return true
			}
		}
	}
	return false
}
