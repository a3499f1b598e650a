package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/machinaops/machina-engine/pkg/auth"
	"github.com/machinaops/machina-engine/pkg/config"
	"github.com/machinaops/machina-engine/pkg/database"
	"github.com/machinaops/machina-engine/pkg/handlers"
	"github.com/machinaops/machina-engine/pkg/logging"
	"github.com/machinaops/machina-engine/pkg/middleware"
	"github.com/machinaops/machina-engine/pkg/reporting"
	"github.com/machinaops/machina-engine/pkg/repositories"
	"github.com/machinaops/machina-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis_host", cfg.Redis.Host),
	)

	ctx := context.Background()

	// Migrations run over database/sql; the pool below is pgx-native.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, migrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Info("Redis not configured, KPI caching disabled")
	}

	// Repositories
	workOrderRepo := repositories.NewWorkOrderRepository()
	productionRepo := repositories.NewProductionRepository()
	sensorRepo := repositories.NewSensorRepository()
	assetRepo := repositories.NewAssetRepository()
	templateRepo := repositories.NewReportTemplateRepository()

	// Services
	checker := auth.NewRoleChecker()
	analyticsService := services.NewAnalyticsService(
		workOrderRepo, productionRepo, sensorRepo, assetRepo,
		redisClient, cfg.Analytics, logger)
	reportService := services.NewReportService(
		templateRepo, reporting.NewPostgresSource(), checker, logger)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg.Auth.SigningSecret, cfg.Auth.EnableVerification, logger)
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, redisClient, logger).RegisterRoutes(mux)
	handlers.NewAnalyticsHandler(analyticsService, checker, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewReportsHandler(reportService, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting machina-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
