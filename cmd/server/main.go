package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/civictrack/internal/handler"
	"github.com/yourorg/civictrack/internal/infrastructure/logger"
	"github.com/yourorg/civictrack/internal/infrastructure/redis"
	"github.com/yourorg/civictrack/internal/observability/metrics"
	"github.com/yourorg/civictrack/internal/observability/tracing"
	"github.com/yourorg/civictrack/internal/reliability/retry"
	"github.com/yourorg/civictrack/internal/repository"
	"github.com/yourorg/civictrack/internal/security"
	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/security/auth"
	"github.com/yourorg/civictrack/internal/security/middleware"
	"github.com/yourorg/civictrack/internal/security/ratelimit"
	"github.com/yourorg/civictrack/internal/service"
	"github.com/yourorg/civictrack/internal/worker"
	"github.com/yourorg/civictrack/pkg/config"
	"github.com/yourorg/civictrack/pkg/database"
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
	log.Info("starting CivicTrack server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, tracing.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "civictrack",
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	// 4. Connect to Postgres, retrying while the database comes up
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "database connect",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, &database.Config{
				Host:     cfg.DatabaseHost,
				Port:     cfg.DatabasePort,
				User:     cfg.DatabaseUser,
				Password: cfg.DatabasePassword,
				Database: cfg.DatabaseName,
				SSLMode:  cfg.DatabaseSSLMode,
			}, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Initialize Redis. The listing cache is advisory, so a missing
	// Redis degrades to store-only reads instead of refusing to start.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without listing cache",
				slog.String("error", err.Error()),
			)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 6. Initialize repositories
	employeeRepo := repository.NewPostgresEmployeeRepository(pool.GetDB(), log)
	complaintRepo := repository.NewPostgresComplaintRepository(pool.GetDB(), log)

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "civictrack",
		time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute) // per employee
	auditLogger := audit.NewLogger(log)
	visibility := security.NewVisibilityPolicy(log)

	// 8. Initialize services
	authService := service.NewAuthService(employeeRepo, tokenManager, log)
	complaintService := service.NewComplaintService(complaintRepo, visibility, redisClient, log, cfg)
	statsService := service.NewStatsService(employeeRepo, complaintRepo, log)

	// 9. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, auditLogger, log)
	employeeCreateHandler := handler.NewEmployeeCreateHandler(authService, log)
	employeeDeactivateHandler := handler.NewEmployeeDeactivateHandler(authService, auditLogger, log)
	complaintListHandler := handler.NewComplaintListHandler(complaintService, authService, log)
	complaintGetHandler := handler.NewComplaintGetHandler(complaintService, authService, log)
	complaintCreateHandler := handler.NewComplaintCreateHandler(complaintService, log)
	complaintUpdateHandler := handler.NewComplaintUpdateHandler(complaintService, authService, auditLogger, log)
	progressPhotoHandler := handler.NewProgressPhotoHandler(complaintService, authService, auditLogger, log)
	profileHandler := handler.NewProfileHandler(authService, statsService, log)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(pool, redisClient)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", loginHandler)
	mux.Handle("POST /api/employees", employeeCreateHandler)
	mux.Handle("DELETE /api/employees/{id}", employeeDeactivateHandler)
	mux.Handle("GET /api/complaints", complaintListHandler)
	mux.Handle("POST /api/complaints", complaintCreateHandler)
	mux.Handle("GET /api/complaints/{id}", complaintGetHandler)
	mux.Handle("PUT /api/complaints/{id}", complaintUpdateHandler)
	mux.Handle("POST /api/complaints/{id}/progress-photo", progressPhotoHandler)
	mux.Handle("GET /api/profile", profileHandler)
	mux.Handle("GET /api/health", healthHandler)
	mux.Handle("GET /readyz", readinessHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> audit -> CORS
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.ValidateJSONContentType(log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "civictrack")

	// 11. Start stats refresh worker in background
	statsWorker := worker.NewStatsWorker(
		statsService,
		complaintRepo,
		log,
		time.Duration(cfg.StatsRefreshIntervalMinutes)*time.Minute,
	)
	go statsWorker.Start(ctx)

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
		slog.Duration("token_ttl", tokenManager.TTL()),
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

	cancel() // Stop stats worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
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

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
