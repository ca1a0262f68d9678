package leaveerrors

import (
	"net/http"

	"leave-expiry/internal/shared/apperror"
)

var (
	ErrOwnerRequired = apperror.New(
		apperror.CodeInvalidInput,
		"userId is required",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"fromDate must be before or equal toDate",
		http.StatusBadRequest,
	)
	ErrInvalidTimeFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid time format, expected HH:MM",
		http.StatusBadRequest,
	)
	ErrHalfDayTimeRequired = apperror.New(
		apperror.CodeInvalidInput,
		"toTime is required for half day leave",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"status must be one of Pending, Approved, Rejected",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave not found",
		http.StatusNotFound,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid leave status transition",
		http.StatusBadRequest,
	)
	ErrLeaveAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"leave already exists",
		http.StatusConflict,
	)
	ErrStatusConflict = apperror.New(
		apperror.CodeConflict,
		"leave status was changed by another request",
		http.StatusConflict,
	)
	ErrRejectionReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"rejectionReason is required when status is Rejected",
		http.StatusBadRequest,
	)
)
