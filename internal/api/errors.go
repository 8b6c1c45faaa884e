package api

import (
	"fmt"
	"net/http"
	"strings"
)

// ApiError is the JSON error body every failing endpoint returns.
type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func newStatusError(code int) *ApiError {
	return &ApiError{
		StatusCode: code,
		Message:    strings.ToLower(http.StatusText(code)),
	}
}

func NewBadRequestError() *ApiError {
	return newStatusError(http.StatusBadRequest)
}

func NewNotFoundError() *ApiError {
	return newStatusError(http.StatusNotFound)
}

func NewUnauthorizedError() *ApiError {
	return newStatusError(http.StatusUnauthorized)
}

func NewForbiddenError() *ApiError {
	return newStatusError(http.StatusForbidden)
}

func NewMethodNotAllowedError() *ApiError {
	return newStatusError(http.StatusMethodNotAllowed)
}

func NewInternalServerError(err error) *ApiError {
	e := newStatusError(http.StatusInternalServerError)
	e.Err = err
	return e
}

// NewValidationError reports a request that parsed but failed a domain check,
// keeping the reason in the message so clients can surface it.
func NewValidationError(message string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}
