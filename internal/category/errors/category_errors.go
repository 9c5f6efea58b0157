package categoryerrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrCategoryNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave category not found",
		http.StatusNotFound,
	)
	ErrCategoryInactive = apperror.New(
		apperror.CodeInvalidState,
		"leave category is no longer active",
		http.StatusBadRequest,
	)
	ErrInvalidCategoryID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave category id",
		http.StatusBadRequest,
	)
)
