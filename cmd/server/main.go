package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/centerattend/internal/featureflags"
	"github.com/yourorg/centerattend/internal/handler"
	"github.com/yourorg/centerattend/internal/infrastructure/logger"
	"github.com/yourorg/centerattend/internal/infrastructure/redis"
	"github.com/yourorg/centerattend/internal/observability/metrics"
	"github.com/yourorg/centerattend/internal/observability/tracing"
	"github.com/yourorg/centerattend/internal/reliability/retry"
	"github.com/yourorg/centerattend/internal/repository"
	"github.com/yourorg/centerattend/internal/security"
	"github.com/yourorg/centerattend/internal/security/audit"
	"github.com/yourorg/centerattend/internal/security/auth"
	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/security/ratelimit"
	"github.com/yourorg/centerattend/internal/service"
	"github.com/yourorg/centerattend/internal/worker"
	"github.com/yourorg/centerattend/pkg/config"
	"github.com/yourorg/centerattend/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting CenterAttend server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "centerattend", cfg.Environment)
	if err != nil {
		log.Warn("tracing init failed", slog.String("error", err.Error()))
	}

	// 4. Connect to Postgres, retrying while the database comes up
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, cfg.Database, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		log.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis. Optional: lookups fall back to the database.
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, running without shared cache", slog.String("error", err.Error()))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 6. Initialize repositories
	db := pool.GetDB()
	accountRepo := repository.NewPostgresAccountRepository(db, log)
	centerRepo := repository.NewPostgresCenterRepository(db, log)
	instructorRepo := repository.NewPostgresInstructorRepository(db, log)
	studentRepo := repository.NewPostgresStudentRepository(db, log)
	attendanceRepo := repository.NewPostgresAttendanceRepository(db, log)
	seminarRepo := repository.NewPostgresSeminarRepository(db, log)

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "centerattend")
	policyEngine := security.NewPolicyEngine(log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize services
	authService := service.NewAuthService(accountRepo, instructorRepo, studentRepo, centerRepo, tokenManager, cfg.TokenTTL, log)
	resolver := service.NewProfileResolver(accountRepo, centerRepo, instructorRepo, studentRepo, redisClient, log)
	directoryService := service.NewDirectoryService(centerRepo, instructorRepo, studentRepo, resolver, policyEngine, log)
	seminarService := service.NewSeminarService(seminarRepo, centerRepo, policyEngine, log)
	accountService := service.NewAccountService(accountRepo, policyEngine, log)

	var liveFeed *handler.LiveFeedHandler
	var broadcaster service.Broadcaster
	if featureflags.EnabledDefault(featureflags.LiveFeed, true) {
		liveFeed = handler.NewLiveFeedHandler(authService, policyEngine, cfg.CORSAllowedOrigins, log)
		broadcaster = liveFeed
	}
	attendanceService := service.NewAttendanceService(attendanceRepo, centerRepo, resolver, policyEngine, broadcaster, log)

	// 9. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, resolver, log)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, log)
	centerHandler := handler.NewCenterHandler(directoryService, log)
	instructorHandler := handler.NewInstructorHandler(directoryService, log)
	studentHandler := handler.NewStudentHandler(directoryService, log)
	seminarHandler := handler.NewSeminarHandler(seminarService, log)
	accountHandler := handler.NewAccountHandler(accountService, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register/instructor", authHandler.RegisterInstructor)
	mux.HandleFunc("POST /api/auth/register/student", authHandler.RegisterStudent)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/password", authHandler.ChangePassword)
	mux.HandleFunc("POST /api/auth/link", authHandler.Link)

	mux.HandleFunc("POST /api/attendance/student", attendanceHandler.MarkStudent)
	mux.HandleFunc("POST /api/attendance/instructor", attendanceHandler.MarkInstructor)
	mux.HandleFunc("POST /api/attendance/bulk", attendanceHandler.MarkBulk)
	mux.HandleFunc("GET /api/attendance", attendanceHandler.List)
	mux.HandleFunc("GET /api/attendance/my", attendanceHandler.My)
	mux.HandleFunc("GET /api/attendance/{id}", attendanceHandler.Get)
	mux.HandleFunc("PUT /api/attendance/{id}", attendanceHandler.Update)
	mux.HandleFunc("DELETE /api/attendance/{id}", attendanceHandler.Delete)

	mux.HandleFunc("GET /api/centers/public", centerHandler.ListPublic)
	mux.HandleFunc("GET /api/centers", centerHandler.List)
	mux.HandleFunc("POST /api/centers", centerHandler.Create)
	mux.HandleFunc("GET /api/centers/{id}", centerHandler.Get)
	mux.HandleFunc("PUT /api/centers/{id}", centerHandler.Update)
	mux.HandleFunc("DELETE /api/centers/{id}", centerHandler.Delete)

	mux.HandleFunc("GET /api/instructors", instructorHandler.List)
	mux.HandleFunc("GET /api/instructors/{id}", instructorHandler.Get)
	mux.HandleFunc("PUT /api/instructors/{id}/assign-center", instructorHandler.AssignCenter)

	mux.HandleFunc("GET /api/students", studentHandler.List)
	mux.HandleFunc("GET /api/students/{id}", studentHandler.Get)
	mux.HandleFunc("PUT /api/students/{id}", studentHandler.Update)
	mux.HandleFunc("DELETE /api/students/{id}", studentHandler.Delete)

	mux.HandleFunc("GET /api/accounts", accountHandler.List)
	mux.HandleFunc("GET /api/accounts/{id}", accountHandler.Get)
	mux.HandleFunc("DELETE /api/accounts/{id}", accountHandler.Deactivate)

	mux.HandleFunc("GET /api/seminars", seminarHandler.List)
	mux.HandleFunc("POST /api/seminars", seminarHandler.Create)
	mux.HandleFunc("GET /api/seminars/{id}", seminarHandler.Get)
	mux.HandleFunc("PUT /api/seminars/{id}", seminarHandler.Update)
	mux.HandleFunc("DELETE /api/seminars/{id}", seminarHandler.Delete)

	if liveFeed != nil {
		mux.Handle("GET /ws/attendance", liveFeed)
	}

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> audit
	// -> content type -> CORS -> mux. JWT runs before the rate limiter so
	// authenticated traffic is budgeted per account rather than per host.
	chained := middleware.JWTMiddleware(authService, log)(
		middleware.RateLimitMiddleware(rateLimiter, log)(
			middleware.AuditMiddleware(auditLogger)(
				middleware.ValidateJSONContentType(log)(handlerWithCORS),
			),
		),
	)
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(otelhttp.NewHandler(chained, "centerattend")),
		log,
	)

	// 11. Start summary worker in background
	summaryWorker := worker.NewSummaryWorker(
		attendanceRepo,
		centerRepo,
		log,
		time.Duration(cfg.SummaryIntervalMinutes)*time.Minute,
	)
	go summaryWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Bool("live_feed", liveFeed != nil),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop summary worker
	rateLimiter.Stop()
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
