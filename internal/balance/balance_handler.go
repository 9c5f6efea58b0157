package balance

import (
	"net/http"
	"strconv"
	"time"

	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("balance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.handler")
	}
	return &Handler{service: service, logger: l}
}

// GetBalance reads the caller's own balance for a category and year. Year
// defaults to the current one.
func (h *Handler) GetBalance(c *gin.Context) {
	employeeID := c.GetString("employee_id")
	categoryID := c.Query("category_id")
	if categoryID == "" {
		httpErr := apperror.ToHTTP(apperror.RequiredField("category_id"))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
		return
	}

	year := time.Now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpErr := apperror.ToHTTP(apperror.InvalidField("year"))
			response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
			return
		}
		year = parsed
	}

	resp, err := h.service.GetBalance(c.Request.Context(), employeeID, categoryID, year)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Warn("get balance failed",
			zap.String("employee_id", employeeID),
			zap.String("category_id", categoryID),
			zap.Int("year", year),
			zap.String("code", httpErr.Code),
		)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
