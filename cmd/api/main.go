package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/coursetrack/internal/api"
	"example.com/coursetrack/internal/auth"
	"example.com/coursetrack/internal/config"
	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/outbox"
	"example.com/coursetrack/internal/persistence/memory"
	"example.com/coursetrack/internal/persistence/migrations"
	persistence "example.com/coursetrack/internal/persistence/postgres"
	httptransport "example.com/coursetrack/internal/transport/http"
)

type stores interface {
	domain.ProgressStore
	domain.ProgressAuditStore
}

func main() {
	logger := log.New(os.Stdout, "[coursetrack-api] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		progressStore stores
		contentStore  curriculum.Store
		dispatcher    *outbox.Dispatcher
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := memory.NewStore()
		progressStore, contentStore = mem, mem
		logger.Printf("using in-memory store; progress is lost on restart")
	default:
		if cfg.AutoMigrate {
			if err := migrations.Up(cfg.PostgresURL); err != nil {
				logger.Fatalf("failed to apply migrations: %v", err)
			}
		}

		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		progressStore = persistence.NewProgressRepository(pool)
		contentStore = persistence.NewContentRepository(pool)

		if cfg.KafkaEnabled() {
			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
			defer producer.Close()

			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
			dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			go dispatcher.Start(ctx)
		} else {
			logger.Printf("KAFKA_BROKERS not set; progress events stay in the outbox")
		}
	}

	progress := domain.NewService(progressStore, domain.WithLogger(logger))
	content := curriculum.NewService(contentStore, curriculum.WithLogger(logger))
	admin := domain.NewAdminService(progressStore)

	handler := api.NewHandler(progress, content, admin)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux,
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigin),
			authMiddleware.Wrap,
		),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s (store=%s)", cfg.HTTPAddress, cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
