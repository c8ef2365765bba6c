package serviceerr

import (
	"net/http"
)

type Code string

const (
	CodeInvalidRequest         Code = "invalid_request"
	CodeUnauthorized           Code = "unauthorized"
	CodeAccessDenied           Code = "access_denied"
	CodeNotFound               Code = "not_found"
	CodeConflict               Code = "conflict"
	CodeUnprocessable          Code = "unprocessable_entity"
	CodeServerError            Code = "server_error"
	CodeTemporarilyUnavailable Code = "temporarily_unavailable"
	CodeUnknown                Code = "unknown"

	// Client side codes, never returned by the backend.
	CodeNoRefreshToken Code = "no_refresh_token"
	CodeRefreshFailed  Code = "refresh_failed"
)

// Error is a failure reported by the taskboard backend or by the session layer.
// Description carries the backend message when there is one.
type Error struct {
	Err         Code
	Status      int
	Description string
}

var (
	ErrInvalidRequest = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized   = &Error{Err: CodeUnauthorized, Description: "unauthorized"}
	ErrAccessDenied   = &Error{Err: CodeAccessDenied}
	ErrNotFound       = &Error{Err: CodeNotFound, Description: "not found"}
	ErrConflict       = &Error{Err: CodeConflict, Description: "already exists"}
	ErrServerError    = &Error{Err: CodeServerError}
	ErrUnknown        = &Error{Err: CodeUnknown, Description: "unknown error"}

	ErrNoRefreshToken = &Error{Err: CodeNoRefreshToken, Description: "no refresh token stored"}
	ErrRefreshFailed  = &Error{Err: CodeRefreshFailed, Description: "token refresh failed"}
)

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// Is matches on the code only, so a decoded backend error satisfies
// errors.Is against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Err == t.Err
}

// Message returns the backend message and whether one was present.
func (e *Error) Message() (string, bool) {
	return e.Description, e.Description != ""
}

func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}

	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeNoRefreshToken, CodeRefreshFailed:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromStatus maps an HTTP status returned by the backend to a Code.
func CodeFromStatus(status int) Code {
	switch {
	case status == http.StatusBadRequest:
		return CodeInvalidRequest
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeAccessDenied
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusUnprocessableEntity:
		return CodeUnprocessable
	case status == http.StatusServiceUnavailable:
		return CodeTemporarilyUnavailable
	case status >= http.StatusInternalServerError:
		return CodeServerError
	case status >= http.StatusBadRequest:
		return CodeInvalidRequest
	default:
		return CodeUnknown
	}
}
