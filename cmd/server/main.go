package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/events"
	"github.com/superplace/rosterd/internal/handler"
	"github.com/superplace/rosterd/internal/infrastructure/logger"
	redisinfra "github.com/superplace/rosterd/internal/infrastructure/redis"
	"github.com/superplace/rosterd/internal/observability/metrics"
	"github.com/superplace/rosterd/internal/observability/tracing"
	"github.com/superplace/rosterd/internal/repository"
	"github.com/superplace/rosterd/internal/security"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/auth"
	"github.com/superplace/rosterd/internal/security/middleware"
	"github.com/superplace/rosterd/internal/security/ratelimit"
	"github.com/superplace/rosterd/internal/service"
	"github.com/superplace/rosterd/internal/worker"
	"github.com/superplace/rosterd/pkg/config"
	"github.com/superplace/rosterd/pkg/database"
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
	log.Info("starting rosterd server", slog.String("environment", cfg.Environment))

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(context.Background(), log, "rosterd", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis (optional; roster caching falls back in-process)
	var redisClient *redisinfra.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisinfra.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	} else {
		log.Info("REDIS_URL not set, using in-process roster cache")
	}

	// 5. Initialize storage
	var (
		accountRepo domain.AccountRepository
		tenantRepo  domain.TenantRepository
		db          *sql.DB
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewConnectionPool(context.Background(), cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.EnsureSchema(context.Background()); err != nil {
			log.Error("failed to ensure schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		db = pool.GetDB()
		accountRepo = repository.NewPostgresAccountRepository(db, log)
		tenantRepo = repository.NewPostgresTenantRepository(db, log)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		accountRepo = repository.NewMemoryAccountRepository()
		tenantRepo = repository.NewMemoryTenantRepository()
	}

	// 6. Initialize services
	broker := events.NewBroker(log)
	scoper := security.NewScoper(log)
	registry := service.NewRegistryService(tenantRepo, log)
	directory := service.NewDirectoryService(accountRepo, broker, log)
	roster := service.NewRosterService(accountRepo, scoper, redisClient, broker, log)

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "rosterd")
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize handlers
	signupHandler := handler.NewSignupHandler(registry, directory, auditLogger, log)
	loginHandler := handler.NewLoginHandler(directory, registry, tokenManager, rateLimiter, auditLogger, log)
	rosterHandler := handler.NewRosterHandler(roster, auditLogger, log)
	academiesHandler := handler.NewAcademiesHandler(registry, auditLogger, log)
	streamHandler := handler.NewRosterStreamHandler(broker, scoper, tokenManager, cfg.CORSAllowedOrigins, log)
	healthHandler := handler.NewHealthHandler(db, redisClient, log)

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/signup", signupHandler)
	mux.Handle("POST /api/auth/login", loginHandler)
	mux.Handle("GET /api/students", rosterHandler)
	mux.HandleFunc("GET /api/academies", academiesHandler.List)
	mux.HandleFunc("POST /api/academies", academiesHandler.Create)
	mux.Handle("GET /ws/roster/{academyId}", streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
	}).Handler

	// Chain middleware: request ID -> metrics -> CORS -> caller ->
	// rate limit -> audit -> input validation. CORS sits outside auth so
	// preflights never 401; the caller context must exist before the
	// tenant-keyed rate limit and the audit trail run.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			corsWrapper(
				middleware.CallerMiddleware(tokenManager, log)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.AuditMiddleware(auditLogger)(
							middleware.ValidateJSONContentType(log)(
								middleware.SanitizeInputs(log)(mux),
							),
						),
					),
				),
			),
		),
		log,
	)
	tracedHandler := otelhttp.NewHandler(rootHandler, "rosterd.http")

	// 10. Start stats worker in background
	statsWorker := worker.NewStatsWorker(
		accountRepo,
		tenantRepo,
		log,
		time.Duration(cfg.StatsIntervalMinutes)*time.Minute,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go statsWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      tracedHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
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
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop stats worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
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

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
