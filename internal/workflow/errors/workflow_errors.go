package workflowerrors

import (
	"fmt"
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrStartDateInPast = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must not be before today",
		http.StatusBadRequest,
	)
	ErrReasonLength = apperror.New(
		apperror.CodeInvalidInput,
		"reason must be between 10 and 500 characters",
		http.StatusBadRequest,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrOverlappingRequest = apperror.New(
		apperror.CodeConflict,
		"an active leave request already covers part of this period",
		http.StatusConflict,
	)

	// ErrInvalidTransition is the expected outcome of a decision race: the
	// request left the state the caller saw. Safe to treat as "already
	// handled" rather than a hard failure.
	ErrInvalidTransition = apperror.New(
		apperror.CodeConflict,
		"leave request is no longer in a state that allows this action",
		http.StatusConflict,
	)

	ErrNotRequestManager = apperror.New(
		apperror.CodeForbidden,
		"only the employee's manager may decide this request",
		http.StatusForbidden,
	)
	ErrNotHR = apperror.New(
		apperror.CodeForbidden,
		"only HR may decide this request",
		http.StatusForbidden,
	)
	ErrNotRequestOwner = apperror.New(
		apperror.CodeForbidden,
		"only the requesting employee may cancel this request",
		http.StatusForbidden,
	)
	ErrNotesRequired = apperror.New(
		apperror.CodeInvalidInput,
		"notes are required when rejecting a request",
		http.StatusBadRequest,
	)
)

// ExceedsCategoryMax is the hard ceiling independent of the ledger.
func ExceedsCategoryMax(maxDays, requested int) *apperror.AppError {
	e := apperror.New(
		apperror.CodeInvalidInput,
		fmt.Sprintf("requested %d days exceeds the category maximum of %d", requested, maxDays),
		http.StatusBadRequest,
	)
	return e.WithDetails(map[string]int{
		"max_days":       maxDays,
		"requested_days": requested,
	})
}
