package balanceerrors

import (
	"fmt"
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrBalanceNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave balance not found",
		http.StatusNotFound,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid year",
		http.StatusBadRequest,
	)
)

// InsufficientBalance carries the numbers so the caller can render an
// actionable message ("5 remaining, 8 requested").
func InsufficientBalance(remaining, requested int) *apperror.AppError {
	e := apperror.New(
		apperror.CodeConflict,
		fmt.Sprintf("insufficient leave balance: %d remaining, %d requested", remaining, requested),
		http.StatusConflict,
	)
	return e.WithDetails(map[string]int{
		"remaining_days": remaining,
		"requested_days": requested,
	})
}
