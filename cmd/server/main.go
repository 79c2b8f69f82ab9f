package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/RMahshie/apscanner/internal/api"
	"github.com/RMahshie/apscanner/internal/cache"
	"github.com/RMahshie/apscanner/internal/config"
	"github.com/RMahshie/apscanner/internal/logger"
	"github.com/RMahshie/apscanner/internal/observability"
	"github.com/RMahshie/apscanner/internal/processing"
	"github.com/RMahshie/apscanner/internal/repository"
	"github.com/RMahshie/apscanner/internal/repository/postgres"
	"github.com/RMahshie/apscanner/internal/storage"
	"github.com/RMahshie/apscanner/pkg/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Logger = logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		Component: "server",
	}, os.Stderr)

	ctx := context.Background()
	fs := afero.NewOsFs()

	// Reading store
	var store storage.ReadingStore
	switch cfg.Storage.Backend {
	case "s3":
		store, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
		})
	default:
		store, err = storage.NewFSStore(fs, cfg.Storage.UploadDir)
	}
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to initialize reading store")
	}

	// Optional reading index
	var repo repository.ReadingRepository
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		repo = postgres.NewPostgresReadingRepository(db)
		log.Info().Msg("Reading index enabled")
	}

	// Suggestion cache and its snapshots
	suggestions := cache.New(cache.WithFs(fs))
	var sink cache.Sink
	switch cfg.Cache.Sink {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		sink = cache.NewRedisSink(rdb, cfg.Redis.Key)
	default:
		if err := fs.MkdirAll(filepath.Dir(cfg.Cache.SnapshotPath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create snapshot directory")
		}
		sink = cache.NewFileSink(fs, cfg.Cache.SnapshotPath)
	}
	snapshotter := cache.NewSnapshotter(suggestions, sink, cfg.Cache.SnapshotInterval)
	snapshotter.Restore(ctx)
	if err := snapshotter.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start cache snapshots")
	}

	svc := processing.NewReadingService(store, repo, suggestions)

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	router.Handle("/metrics", promhttp.Handler())

	// Create Huma API
	humaConfig := huma.DefaultConfig("AP Scanner API", "1.0.0")
	humaConfig.DocsPath = "/api/docs"
	humaConfig.OpenAPIPath = "/api/openapi"
	humaConfig.SchemasPath = "/api/schemas"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = "1.0.0"
		resp.Body.Time = time.Now()
		resp.Body.Entries = svc.CacheSize()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, svc, cfg.Server.PublicURL)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("public_url", cfg.Server.PublicURL).Msg("Starting AP Scanner server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// final flush once no more uploads can arrive
	snapshotter.Stop(shutdownCtx)

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
// and records them in the request metrics
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				route := chi.RouteContext(r.Context()).RoutePattern()
				if route == "" {
					route = "unmatched"
				}
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				latency := time.Since(start)
				observability.ObserveHTTP(r.Method, route, status, latency.Seconds())

				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("route", route).
					Str("remote_ip", r.RemoteAddr).
					Int("status", status).
					Dur("latency", latency).
					Str("user_agent", r.UserAgent()).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
