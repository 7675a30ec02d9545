package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Payload is the wire shape of every error response, spec.md §6: a stable
// code, a human message, an optional detail, and the request ID that also
// appears in server logs so an operator can correlate the two.
type Payload struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id"`
}

// WriteHTTP writes err (coerced to *Error if necessary) as the spec.md §6
// error payload, at its mapped HTTP status, stamping the chi request ID
// pulled from r's context.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := AsError(err)
	if !ok {
		apiErr = Wrap(CodeInternalError, "unexpected internal error", err)
	}

	detail := ""
	if apiErr.Err != nil {
		detail = apiErr.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	json.NewEncoder(w).Encode(Payload{
		ErrorCode: string(apiErr.Code),
		Message:   apiErr.Message,
		Detail:    detail,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

// AsError unwraps err into an *Error, the way errors.As would, so callers
// never have to type-assert by hand.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
