package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/config"
	"github.com/dafibh/academia/academia-backend/internal/handler"
	"github.com/dafibh/academia/academia-backend/internal/middleware"
	"github.com/dafibh/academia/academia-backend/internal/repository/postgres"
	"github.com/dafibh/academia/academia-backend/internal/repository/storage"
	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/dafibh/academia/academia-backend/internal/util"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	enrollmentRepo := postgres.NewEnrollmentRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	extraFeeRepo := postgres.NewExtraFeeRepository(pool)
	proofRepo := postgres.NewPaymentProofRepository(pool)
	transactor := postgres.NewTransactor(pool)

	proofStore := newProofStore(cfg)

	// WebSocket hub for live ledger updates
	hub := websocket.NewHub()

	// Initialize services
	clock := util.SystemClock{}
	locker := service.NewStudentLocker()
	rules := service.ScheduleRules{
		CutoffDay: cfg.Billing.CutoffDay,
		DueDay:    cfg.Billing.DueDay,
		Precision: cfg.Billing.Precision,
	}

	ledgerService := service.NewLedgerService(enrollmentRepo, paymentRepo, discountRepo, extraFeeRepo, clock, rules)
	paymentService := service.NewPaymentService(enrollmentRepo, paymentRepo, discountRepo, extraFeeRepo, transactor, clock, locker, rules)
	paymentService.SetEventPublisher(hub)
	extraFeeService := service.NewExtraFeeService(enrollmentRepo, paymentRepo, discountRepo, extraFeeRepo, clock, rules)
	extraFeeService.SetEventPublisher(hub)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, paymentRepo, discountRepo, extraFeeRepo, clock, locker, rules)
	enrollmentService.SetEventPublisher(hub)
	proofService := service.NewProofService(proofStore, proofRepo, paymentService)
	proofService.SetEventPublisher(hub)

	// Initialize handlers
	handlers := handler.Handlers{
		Ledger:     handler.NewLedgerHandler(ledgerService),
		Payment:    handler.NewPaymentHandler(paymentService),
		ExtraFee:   handler.NewExtraFeeHandler(extraFeeService),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService),
		Proof:      handler.NewProofHandler(proofService),
		WebSocket:  handler.NewWebSocketHandler(hub, ledgerService, cfg.CORSOrigins),
	}

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"proofsEnabled": proofService.IsEnabled(),
		})
	})

	// Register API routes
	handler.RegisterRoutes(e, handlers, rateLimiter)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newProofStore connects the configured proof image backend. Uploads stay disabled
// when no driver is set or the backend cannot be reached.
func newProofStore(cfg *config.Config) storage.ProofStore {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		store, err := storage.NewS3ProofStore(ctx, cfg.Storage.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 unavailable, payment proof uploads disabled")
			return nil
		}
		log.Info().Str("bucket", cfg.Storage.S3.Bucket).Msg("Payment proofs stored in S3")
		return store
	case config.StorageDriverMinIO:
		store, err := storage.NewMinIOProofStore(ctx, cfg.Storage.MinIO)
		if err != nil {
			log.Warn().Err(err).Msg("MinIO unavailable, payment proof uploads disabled")
			return nil
		}
		log.Info().Str("bucket", cfg.Storage.MinIO.BucketName).Msg("Payment proofs stored in MinIO")
		return store
	}

	log.Info().Msg("No storage driver configured, payment proof uploads disabled")
	return nil
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
