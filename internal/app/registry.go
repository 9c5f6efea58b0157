package app

import (
	"database/sql"

	"leavedesk/internal/balance"
	"leavedesk/internal/category"
	"leavedesk/internal/directory"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/middleware"
	"leavedesk/internal/notification"
	"leavedesk/internal/rbac"
	"leavedesk/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	categoryRepo := category.NewRepository(gormDB)
	directoryRepo := directory.NewRepository(db)
	balanceRepo := balance.NewRepository(db)
	notificationRepo := notification.NewRepository(gormDB)
	workflowRepo := workflow.NewRepository(db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := rbac.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)

	// --- Services ---
	categoryService := category.NewService(categoryRepo, rdb)
	balanceService := balance.NewService(balanceRepo, rdb)
	notificationService := notification.NewService(notificationRepo)
	dispatcher := notification.NewOutboxDispatcher(outboxRepo)
	workflowService := workflow.NewService(
		db,
		workflowRepo,
		directoryRepo,
		balanceRepo,
		categoryService,
		dispatcher,
		balanceService,
	)

	// --- Handlers ---
	categoryHandler := category.NewHandler(categoryService)
	balanceHandler := balance.NewHandler(balanceService)
	notificationHandler := notification.NewHandler(notificationService)
	workflowHandler := workflow.NewHandler(workflowService)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByIP(20, 40))
	{
		category.RegisterRoutes(api, categoryHandler, rbacService)
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		notification.RegisterRoutes(api, notificationHandler, rbacService)
		workflow.RegisterRoutes(api, workflowHandler, rbacService)
	}

	return nil
}
