package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	ErrValidation        ErrorKind = "validation_error"
	ErrNotFound          ErrorKind = "not_found"
	ErrInvalidState      ErrorKind = "invalid_state"
	ErrInvalidTransition ErrorKind = "invalid_transition"
	ErrInvalidMethod     ErrorKind = "invalid_method"
	ErrGateway           ErrorKind = "gateway_error"
	ErrUpstream          ErrorKind = "upstream_error"
	ErrInvalidSignature  ErrorKind = "invalid_signature"
	ErrUnauthorized      ErrorKind = "unauthorized"
)

// AppError is the one error shape that crosses component boundaries. Handlers
// map Kind to an HTTP status; everything below the handlers only wraps.
type AppError struct {
	Kind    ErrorKind
	Message string
	// Status overrides the kind's default HTTP status. Used by upstream
	// errors, which mirror whatever the persistence service answered.
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrGateway:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: ErrValidation, Message: msg}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf("%s not found", what)}
}

func NewInvalidStateError(msg string) *AppError {
	return &AppError{Kind: ErrInvalidState, Message: msg}
}

func NewInvalidTransitionError(msg string) *AppError {
	return &AppError{Kind: ErrInvalidTransition, Message: msg}
}

func NewInvalidMethodError(msg string) *AppError {
	return &AppError{Kind: ErrInvalidMethod, Message: msg}
}

func NewGatewayError(err error) *AppError {
	return &AppError{Kind: ErrGateway, Message: "payment gateway request failed", Err: err}
}

func NewUpstreamError(status int, msg string) *AppError {
	return &AppError{Kind: ErrUpstream, Message: msg, Status: status}
}

func NewInvalidSignatureError(err error) *AppError {
	return &AppError{Kind: ErrInvalidSignature, Message: "webhook signature verification failed", Err: err, Status: http.StatusBadRequest}
}

func NewUnauthorizedError(msg string) *AppError {
	return &AppError{Kind: ErrUnauthorized, Message: msg}
}

// AsAppError unwraps err down to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Kind == kind
}
