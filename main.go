package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"wellpulse/internal/audit"
	"wellpulse/internal/auth"
	"wellpulse/internal/observability/metrics"
	scadaapp "wellpulse/internal/scada/application"
	scadarepo "wellpulse/internal/scada/infrastructure/postgres"
	scadahttp "wellpulse/internal/scada/interfaces/http"
	wellsrepo "wellpulse/internal/wells/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	tuning, err := scadaapp.LoadTuning()
	if err != nil {
		logger.Fatalf("scada tuning error: %v", err)
	}

	wellRepo := wellsrepo.NewWellRepository(db)
	connRepo := scadarepo.NewConnectionRepository(db)
	mappingRepo := scadarepo.NewTagMappingRepository(db)
	readingRepo := scadarepo.NewReadingRepository(db)

	connectionService, err := scadaapp.NewConnectionService(wellRepo, connRepo,
		scadaapp.WithStalenessThreshold(tuning.StalenessThreshold()),
		scadaapp.WithStalenessOverrides(tuning.StalenessOverrides()),
	)
	if err != nil {
		logger.Fatalf("connection service error: %v", err)
	}
	tagService, err := scadaapp.NewTagMappingService(connRepo, mappingRepo, readingRepo)
	if err != nil {
		logger.Fatalf("tag mapping service error: %v", err)
	}

	scadaHandler, err := scadahttp.NewHandler(connectionService, tagService, auditRepo)
	if err != nil {
		logger.Fatalf("scada handler error: %v", err)
	}
	ingestHandler, err := scadahttp.NewIngestHandler(connectionService, tagService, tuning.MaxBatchSize)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	exportHandler, err := scadahttp.NewExportHandler(connectionService, tagService)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	go func() {
		ticker := time.NewTicker(tuning.HealthSweepInterval())
		defer ticker.Stop()
		for range ticker.C {
			healthy, unhealthy, err := connectionService.HealthCounts(context.Background(), cfg.TenantID)
			if err != nil {
				logger.Printf("health sweep error: %v", err)
				continue
			}
			metrics.SetConnectionHealth(healthy, unhealthy)
			if unhealthy > 0 {
				logger.Printf("health sweep: %d healthy, %d unhealthy", healthy, unhealthy)
			}
		}
	}()

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/scada/readings", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/ingest/scada/status", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/scada/connections", scadaHandler)
	mux.Handle("/api/v1/scada/connections/", scadaHandler)
	mux.Handle("/api/v1/exports/connections.csv", exportHandler)
	mux.Handle("/api/v1/exports/connections.xlsx", exportHandler)
	mux.Handle("/api/v1/exports/connections.pdf", exportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	TenantID          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:          getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
