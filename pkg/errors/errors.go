package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeStateConflict  Code = "STATE_CONFLICT"
	CodeTooEarly       Code = "TOO_EARLY"
	CodeInsufficient   Code = "INSUFFICIENT_FUNDS"
	CodeAmountMismatch Code = "AMOUNT_MISMATCH"
	CodeIdempotency    Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit      Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:     {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:   {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:      {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:       {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:       {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict:  {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeTooEarly:       {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "action not yet allowed", DetailsAllowed: true},
	CodeInsufficient:   {HTTPStatus: http.StatusPaymentRequired, PublicMessage: "insufficient wallet balance", DetailsAllowed: true},
	CodeAmountMismatch: {HTTPStatus: http.StatusBadRequest, PublicMessage: "amount does not match"},
	CodeIdempotency:    {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:      {HTTPStatus: http.StatusTooManyRequests, Retryable: true, PublicMessage: "rate limit exceeded"},
	CodeInternal:       {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:     {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable"},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a typed failure carrying a Code, a client-safe message, optional
// details and the underlying cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code is CodeInternal on a nil receiver.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
