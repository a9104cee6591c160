package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeUploadRejected   ErrorCode = "UPLOAD_REJECTED"
	CodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// InternalMessage is the only text a client ever sees for a 5xx.
const InternalMessage = "internal server error"

type AppError struct {
	Code     ErrorCode
	Message  string
	HTTPCode int
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the Err* values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode, Err: err}
}

var (
	ErrValidation       = New(CodeValidation, "validation failed", http.StatusBadRequest)
	ErrUnauthenticated  = New(CodeUnauthenticated, "unauthorized", http.StatusUnauthorized)
	ErrNotFound         = New(CodeNotFound, "not found", http.StatusNotFound)
	ErrConflict         = New(CodeConflict, "already exists", http.StatusConflict)
	ErrUploadRejected   = New(CodeUploadRejected, "upload rejected", http.StatusBadRequest)
	ErrSignatureInvalid = New(CodeSignatureInvalid, "invalid signature", http.StatusBadRequest)
	ErrUnavailable      = New(CodeUnavailable, "service unavailable", http.StatusServiceUnavailable)
	ErrInternal         = New(CodeInternal, InternalMessage, http.StatusInternalServerError)
)

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func Unauthenticated(message string) *AppError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func Conflict(message string, err error) *AppError {
	return Wrap(err, CodeConflict, message, http.StatusConflict)
}

func UploadRejected(message string, err error) *AppError {
	return Wrap(err, CodeUploadRejected, message, http.StatusBadRequest)
}

func SignatureInvalid(message string, err error) *AppError {
	return Wrap(err, CodeSignatureInvalid, message, http.StatusBadRequest)
}

func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message, http.StatusServiceUnavailable)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, InternalMessage, http.StatusInternalServerError)
}

// As unwraps err into an *AppError if one is present in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
