package buildapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Sentinel errors for common conditions.
var (
	// ErrInvalidParam indicates a request parameter was rejected locally,
	// before any request was sent.
	ErrInvalidParam = errors.New("buildapi: invalid parameter")

	// ErrUnauthorized indicates the API key was missing or rejected (401/403).
	ErrUnauthorized = errors.New("buildapi: unauthorized")

	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("buildapi: not found")

	// ErrStreamCanceled is reported by LogStream.Err when the stream ended
	// because it was cancelled rather than because of a fatal error.
	ErrStreamCanceled = errors.New("buildapi: log stream canceled")
)

// Codes used by the Build API in error bodies.
const (
	// CodeInvalidParam is the code of a locally generated parameter error.
	CodeInvalidParam = "InvalidParam"

	// CodeInvalidLogToken marks a continuation handle the server no longer recognizes.
	CodeInvalidLogToken = "InvalidLogToken"
)

// APIError is the normalized error value for every failed Build API call.
//
// Use errors.As to inspect it:
//
//	var apiErr *buildapi.APIError
//	if errors.As(err, &apiErr) {
//	    fmt.Println(apiErr.Code, apiErr.MessageFull)
//	}
type APIError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int `json:"-"`

	// Code is a machine-readable code. It is the server's own code when the
	// error body carried one, otherwise the HTTP status code as a string.
	Code string `json:"code"`

	// MessageShort is a short human-readable description.
	MessageShort string `json:"message_short"`

	// MessageFull is the full human-readable description.
	MessageFull string `json:"message_full"`

	// Err is the underlying transport or decode error, if any.
	Err error `json:"-"`
}

// newAPIError builds an APIError; an empty full message copies the short one.
func newAPIError(statusCode int, code, short, full string) *APIError {
	if full == "" {
		full = short
	}
	return &APIError{
		StatusCode:   statusCode,
		Code:         code,
		MessageShort: short,
		MessageFull:  full,
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("buildapi: %s (status %d): %s", e.Code, e.StatusCode, e.MessageFull)
	}
	if e.Err != nil {
		return fmt.Sprintf("buildapi: %s: %s: %v", e.Code, e.MessageFull, e.Err)
	}
	return fmt.Sprintf("buildapi: %s: %s", e.Code, e.MessageFull)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps the error onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidParam:
		return e.Code == CodeInvalidParam
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// invalidParamError is returned by Params.validate.
func invalidParamError(name string) *APIError {
	return newAPIError(0, CodeInvalidParam, "Invalid Parameter: "+name, "")
}

// statusCode renders an HTTP status as an error code.
func statusCode(status int) string {
	return strconv.Itoa(status)
}
