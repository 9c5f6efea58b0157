package notificationerrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrNotificationNotFound = apperror.New(
		apperror.CodeNotFound,
		"notification not found",
		http.StatusNotFound,
	)
	ErrInvalidEvent = apperror.New(
		apperror.CodeInvalidInput,
		"workflow event is malformed",
		http.StatusBadRequest,
	)
)
