package leavestoreerrors

import (
	"net/http"

	"leave-expiry/internal/shared/apperror"
)

var (
	ErrOwnerRequired = apperror.New(
		apperror.CodeInvalidInput,
		"owner id is required",
		http.StatusBadRequest,
	)
	ErrLeaveIDRequired = apperror.New(
		apperror.CodeInvalidInput,
		"leave id is required",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave not found in store",
		http.StatusNotFound,
	)
	ErrRequestFailed = apperror.New(
		apperror.CodeInternalError,
		"leave store request failed",
		http.StatusBadGateway,
	)
	ErrMalformedResponse = apperror.New(
		apperror.CodeInternalError,
		"leave store returned a malformed response",
		http.StatusBadGateway,
	)
)

// Unavailable wraps a transport failure talking to the leave store.
func Unavailable(err error) *apperror.AppError {
	return apperror.Wrap(
		err,
		apperror.CodeServiceUnavailable,
		"leave store unreachable",
		http.StatusServiceUnavailable,
	)
}
