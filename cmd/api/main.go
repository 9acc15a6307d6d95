package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/archduke1337/mindmesh-core/internal/config"
	"github.com/archduke1337/mindmesh-core/internal/handler"
	"github.com/archduke1337/mindmesh-core/internal/repository"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/internal/validator"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Mind Mesh Core",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Repositories
	couponRepo := repository.NewCouponRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	judgingRepo := repository.NewJudgingRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// Services (layered architecture)
	couponService := service.NewCouponService(pool, couponRepo, usageRepo, cfg.Coupon.StrictScope)
	teamService := service.NewTeamService(pool, teamRepo, cfg.Hackathon.DefaultTeamSize, cfg.Hackathon.InviteCodeLength)
	judgingService := service.NewJudgingService(pool, judgingRepo, submissionRepo, cfg.Hackathon.InviteCodeLength)
	submissionService := service.NewSubmissionService(pool, submissionRepo)

	// Handlers
	couponHandler := handler.NewCouponHandler(couponService, validate)
	teamHandler := handler.NewTeamHandler(teamService, validate)
	judgingHandler := handler.NewJudgingHandler(judgingService, validate)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	app.Get("/health", healthHandler.Check)

	// Coupon routes
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Post("/api/coupons/validate", couponHandler.ValidateCoupon)
	app.Post("/api/coupons/redeem", couponHandler.RedeemCoupon)
	app.Get("/api/coupons/:code", couponHandler.GetCoupon)
	app.Delete("/api/coupons/:code", couponHandler.DeactivateCoupon)

	// Team routes
	app.Post("/api/teams", teamHandler.CreateTeam)
	app.Post("/api/teams/join", teamHandler.JoinTeam)
	app.Get("/api/teams/:id", teamHandler.GetTeam)
	app.Delete("/api/teams/:id", teamHandler.DeleteTeam)
	app.Delete("/api/teams/:id/members/:userID", teamHandler.RemoveMember)
	app.Patch("/api/teams/:id/status", teamHandler.TransitionTeam)

	// Judging routes
	app.Post("/api/judges", judgingHandler.CreateJudge)
	app.Post("/api/judges/accept", judgingHandler.AcceptInvite)
	app.Get("/api/events/:eventID/judges", judgingHandler.ListJudges)
	app.Put("/api/events/:eventID/criteria", judgingHandler.SetCriteria)
	app.Get("/api/events/:eventID/criteria", judgingHandler.ListCriteria)
	app.Get("/api/events/:eventID/rankings", judgingHandler.Rankings)
	app.Post("/api/scores", judgingHandler.SubmitScore)
	app.Post("/api/scores/bulk", judgingHandler.SubmitScores)

	// Submission routes
	app.Post("/api/submissions", submissionHandler.CreateSubmission)
	app.Get("/api/submissions/:id", submissionHandler.GetSubmission)
	app.Patch("/api/submissions/:id", submissionHandler.UpdateSubmission)
	app.Post("/api/submissions/:id/status", submissionHandler.TransitionSubmission)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
