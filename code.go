package connectrt

import "net/http"

// Code is a Connect error code. There are no user-defined codes: only the
// sixteen values enumerated below are valid.
type Code string

// The closed set of Connect error codes and their canonical lowercase wire
// strings.
const (
	CodeCanceled           Code = "canceled"
	CodeUnknown            Code = "unknown"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeDeadlineExceeded   Code = "deadline_exceeded"
	CodeNotFound           Code = "not_found"
	CodeAlreadyExists      Code = "already_exists"
	CodePermissionDenied   Code = "permission_denied"
	CodeResourceExhausted  Code = "resource_exhausted"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeAborted            Code = "aborted"
	CodeOutOfRange         Code = "out_of_range"
	CodeUnimplemented      Code = "unimplemented"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeDataLoss           Code = "data_loss"
	CodeUnauthenticated    Code = "unauthenticated"
)

// codeToHTTP is the closed code-to-HTTP-status table from spec §4.4. It
// governs unary responses; streaming responses are always HTTP 200 with the
// error embedded in the end-of-stream envelope.
var codeToHTTP = map[Code]int{
	CodeCanceled:           499,
	CodeUnknown:            http.StatusInternalServerError,
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeDeadlineExceeded:   http.StatusGatewayTimeout,
	CodeNotFound:           http.StatusNotFound,
	CodeAlreadyExists:      http.StatusConflict,
	CodePermissionDenied:   http.StatusForbidden,
	CodeResourceExhausted:  http.StatusTooManyRequests,
	CodeFailedPrecondition: http.StatusPreconditionFailed,
	CodeAborted:            http.StatusConflict,
	CodeOutOfRange:         http.StatusBadRequest,
	CodeUnimplemented:      http.StatusNotImplemented,
	CodeInternal:           http.StatusInternalServerError,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeDataLoss:           http.StatusInternalServerError,
	CodeUnauthenticated:    http.StatusUnauthorized,
}

// httpToCode is the reverse of codeToHTTP, used by the client to classify a
// unary error response that has no structured body (e.g. a proxy's plain
// error page). Any status not in the table maps to CodeUnknown.
var httpToCode = func() map[int]Code {
	m := make(map[int]Code, len(codeToHTTP))
	for code, status := range codeToHTTP {
		// Several codes share an HTTP status (e.g. AlreadyExists/Aborted both
		// map to 409). Keep the first entry encountered; which one that is
		// depends on map iteration order, so shared statuses are pinned below.
		if _, ok := m[status]; !ok {
			m[status] = code
		}
	}
	// Pin the reverse mappings that matter for client error classification;
	// map iteration order is undefined, so the dedupe above isn't enough on
	// its own for statuses backed by more than one code.
	m[http.StatusConflict] = CodeAborted
	m[http.StatusBadRequest] = CodeInvalidArgument
	m[http.StatusInternalServerError] = CodeUnknown
	return m
}()

// HTTPStatus returns the HTTP status this code maps to for a unary response.
func (c Code) HTTPStatus() int {
	if status, ok := codeToHTTP[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeFromHTTPStatus maps an HTTP status to a Code, defaulting to
// CodeUnknown for any status outside the table.
func CodeFromHTTPStatus(status int) Code {
	if code, ok := httpToCode[status]; ok {
		return code
	}
	return CodeUnknown
}

// valid reports whether c is one of the sixteen defined codes.
func (c Code) valid() bool {
	_, ok := codeToHTTP[c]
	return ok
}

func (c Code) String() string {
	if c.valid() {
		return string(c)
	}
	return "code(" + string(c) + ")"
}
