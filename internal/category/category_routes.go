package category

import (
	"leavedesk/internal/middleware"
	"leavedesk/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	categories := r.Group("/categories")
	categories.Use(middleware.AuthMiddleware())
	{
		categories.GET("", middleware.RBACAuthorize(rbacService, "category", "read"), handler.GetAll)
		categories.GET("/:id", middleware.RBACAuthorize(rbacService, "category", "read"), handler.GetByID)
	}
}
