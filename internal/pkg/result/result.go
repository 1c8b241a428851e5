// Package result carries soft outcomes that callers are expected to branch on
// instead of treating as exceptional errors.
package result

import "fmt"

// Code identifies why an operation could not complete.
type Code string

const (
	CodeNone            Code = ""
	CodeNoActivePlan    Code = "no_active_plan"
	CodeNoTokenUsage    Code = "no_token_usage"
	CodeLimitExhausted  Code = "token_limit_exhausted"
	CodeRateLimited     Code = "rate_limited"
	CodeInvalidArgument Code = "invalid_argument"
)

type Result[T any] struct {
	ok      bool
	value   T
	code    Code
	message string
}

func Success[T any](value T, message string) Result[T] {
	return Result[T]{ok: true, value: value, message: message}
}

func Failure[T any](code Code, message string) Result[T] {
	return Result[T]{code: code, message: message}
}

func (r Result[T]) Ok() bool        { return r.ok }
func (r Result[T]) Code() Code      { return r.code }
func (r Result[T]) Message() string { return r.message }

// Value returns the payload and whether it is valid.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Err converts a failure into an error so it can travel through error-returning code.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	return &FailureError{Code: r.code, Message: r.message}
}

type FailureError struct {
	Code    Code
	Message string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
