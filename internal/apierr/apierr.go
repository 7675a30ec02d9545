// Package apierr defines the closed error taxonomy of spec.md §4.4.6 /
// §6, and maps each code onto the HTTP status the delivery layer writes.
// The teacher's handlers wrote ad-hoc http.Error strings per call site
// (internal/delivery/http/handlers.go); this package centralizes that into
// one typed, sentinel-based error the Planner and Executor return instead.
package apierr

import "fmt"

// Code is one member of the closed error taxonomy.
type Code string

const (
	CodeInvalidParameter            Code = "INVALID_PARAMETER"
	CodePaperNotFound                Code = "PAPER_NOT_FOUND"
	CodeResourceNotFound             Code = "RESOURCE_NOT_FOUND"
	CodeForbiddenSQL                 Code = "FORBIDDEN_SQL"
	CodeEmbeddingServiceUnavailable  Code = "EMBEDDING_SERVICE_UNAVAILABLE"
	CodeQueryTimeout                 Code = "QUERY_TIMEOUT"
	CodeDatabaseUnavailable          Code = "DATABASE_UNAVAILABLE"
	CodeInternalPlanError            Code = "INTERNAL_PLAN_ERROR"
	CodeInternalError                Code = "INTERNAL_ERROR"
)

// httpStatus maps each code to its HTTP status, spec.md §6 error table.
var httpStatus = map[Code]int{
	CodeInvalidParameter:           400,
	CodePaperNotFound:              404,
	CodeResourceNotFound:           404,
	CodeForbiddenSQL:               400,
	CodeEmbeddingServiceUnavailable: 503,
	CodeQueryTimeout:               504,
	CodeDatabaseUnavailable:        503,
	CodeInternalPlanError:          500,
	CodeInternalError:              500,
}

// Error is the typed error value returned throughout the Planner,
// Executor, and delivery layers. It always carries a stable Code so the
// HTTP layer never has to pattern-match on error strings.
type Error struct {
	Code    Code
	Message string
	Err     error // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the response status for this error's code.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return 500
}

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Invalidf is shorthand for the most common case: a malformed request
// parameter caught during validation.
func Invalidf(format string, args ...any) *Error {
	return New(CodeInvalidParameter, fmt.Sprintf(format, args...))
}
