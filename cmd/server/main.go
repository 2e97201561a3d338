package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"romaneio-backend/internal/admin"
	"romaneio-backend/internal/audit"
	"romaneio-backend/internal/auth"
	"romaneio-backend/internal/cache"
	"romaneio-backend/internal/config"
	"romaneio-backend/internal/database"
	"romaneio-backend/internal/document"
	"romaneio-backend/internal/ident"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/printrun"
	"romaneio-backend/internal/requests"
	"romaneio-backend/internal/separation"
	"romaneio-backend/internal/sheets"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()
	database.Init(cfg)

	store, err := sheets.NewClient(context.Background(), sheets.ClientConfig{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Timeout:         cfg.StoreTimeout,
		Logger:          logger.With().Str("component", "sheets").Logger(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("tabular store client could not be built")
	}

	names := sheets.DefaultNames()
	names.Requests = cfg.RequestsSheetName

	readCache := cache.New(cfg.CacheTTL, cfg.CacheForceRefresh)

	audit.Init(store, names, logger.With().Str("component", "audit").Logger())

	tracker := document.NewTracker()
	runner := document.NewRunner(
		document.NewExcelRenderer(),
		document.NewDirStorage(cfg.DocumentDir),
		tracker,
		logger.With().Str("component", "document").Logger(),
	)

	minter := ident.NewMinter(store, names, logger.With().Str("component", "ident").Logger())
	manager := printrun.NewManager(store, names, readCache, minter, runner,
		logger.With().Str("component", "printrun").Logger())
	processor := separation.NewProcessor(store, names, readCache,
		logger.With().Str("component", "separation").Logger())
	requestSvc := requests.NewService(store, names, readCache,
		logger.With().Str("component", "requests").Logger())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Request sheet views
	protected.Get("/requests", requests.ListHandler(requestSvc))
	protected.Get("/requests/summary", requests.SummaryHandler(requestSvc))

	// Print runs and separation
	protected.Post("/print-runs", printrun.CreateHandler(manager))
	protected.Get("/print-runs", printrun.ListHandler(manager, false))
	protected.Get("/print-runs/pending", printrun.ListHandler(manager, true))
	protected.Get("/print-runs/:id", printrun.GetHandler(manager))
	protected.Get("/print-runs/:id/items", printrun.ItemsHandler(manager))
	protected.Post("/print-runs/:id/process", separation.ProcessHandler(processor))
	protected.Get("/print-runs/:id/document", document.StatusHandler(tracker))

	// Admin
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/cache/invalidate", admin.InvalidateCacheHandler(readCache))
	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Patch("/users/:id/active", admin.SetUserActiveHandler())
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("server listening")
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	// Let in-flight document tasks write their files before exit.
	runner.Wait()
	logger.Info().Msg("bye")
}
