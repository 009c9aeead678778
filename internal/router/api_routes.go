package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"orgstruct-web/internal/config"
	"orgstruct-web/internal/handler"
	"orgstruct-web/internal/middleware"
	"orgstruct-web/internal/repository"
	"orgstruct-web/internal/service"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	orgRepo.InsertBatchSize = cfg.ImportBatchSize
	sessionRepo := repository.NewSessionRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg)
	excelService := service.NewExcelService()
	detector := service.NewDuplicateDetector()

	// Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	importHandler := handler.NewImportHandler(sessionRepo, orgRepo, excelService, detector, asynqClient, redisClient, cfg)
	orgHandler := handler.NewOrgHandler(orgRepo)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)

	// Import routes
	imports := protected.Group("/imports")
	imports.Post("/", importHandler.UploadWorkbook)
	imports.Get("/", importHandler.GetSessions)
	imports.Get("/template", importHandler.DownloadTemplate)
	imports.Get("/:id", importHandler.GetSessionDetail)
	imports.Post("/:id/execute", importHandler.ExecuteImport)
	imports.Post("/:id/cancel", importHandler.CancelSession)
	imports.Get("/:id/result", importHandler.GetSessionResult)
	imports.Get("/:id/progress", importHandler.GetProgress)
	imports.Get("/:id/error-report", importHandler.DownloadErrorReport)

	// Organization structure routes
	orgs := protected.Group("/organizations")
	orgs.Get("/:orgId", orgHandler.GetOrganization)
	orgs.Get("/:orgId/departments", orgHandler.GetDepartments)
	orgs.Get("/:orgId/positions", orgHandler.GetPositions)
}
