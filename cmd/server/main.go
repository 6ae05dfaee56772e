package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"idproxy/internal/audit"
	"idproxy/internal/evidence/greenid"
	"idproxy/internal/evidence/vc/keystore"
	"idproxy/internal/evidence/vc/presentation"
	"idproxy/internal/evidence/vc/signer"
	"idproxy/internal/evidence/verification/handler"
	verificationmetrics "idproxy/internal/evidence/verification/metrics"
	"idproxy/internal/evidence/verification/service"
	"idproxy/internal/evidence/verification/store"
	"idproxy/internal/evidence/verification/tracer"
	"idproxy/internal/platform/cache"
	"idproxy/internal/platform/config"
	"idproxy/internal/platform/database"
	"idproxy/internal/platform/health"
	"idproxy/internal/platform/httpserver"
	"idproxy/internal/platform/kafka"
	"idproxy/internal/platform/logger"
	"idproxy/internal/platform/metrics"
	"idproxy/internal/platform/redis"
	httptransport "idproxy/internal/transport/http"
)

const (
	auditInboxSize       = 1024
	auditTopicPartitions = 3
	shutdownTimeout      = 10 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing idproxy",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"test_mode", cfg.TestMode(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	platformMetrics := metrics.New(reg)
	verifyMetrics := verificationmetrics.New(reg)

	vendor := greenid.NewManager(cfg.GreenID.URL, greenid.Credentials{
		AccountID: cfg.GreenID.AccountID,
		Password:  cfg.GreenID.Password,
	}, greenid.WithLogger(log))
	vendor.Start()

	wallet, err := keystore.NewWallet(cfg.Wallet.PrivateKey)
	if err != nil {
		// JWT credentials degrade to HashZero and hash signatures to empty.
		log.Error("wallet key unusable, issuing degraded credentials", "error", err)
		wallet = &keystore.Wallet{}
	}
	walletAddress := cfg.Wallet.Address
	if walletAddress == "" {
		walletAddress = wallet.Address()
	}

	engine := signer.NewEngine(
		signer.NewJWTSigner(wallet, log),
		signer.NewPGPSigner(keystore.NewPGP(cfg.PGP.PrivateKeyPath, cfg.PGP.Passphrase, log), cfg.Wallet.DomainURL, log),
		signer.WithObserver(verifyMetrics),
	)
	assembler := presentation.NewAssembler(presentation.Config{
		WalletAddress: walletAddress,
		DomainURL:     cfg.Wallet.DomainURL,
		SignHash:      cfg.Wallet.SignHash,
	}, wallet, log)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("greenid", vendor.Health)

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // best-effort on shutdown
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}
	responseCache := cache.New(func() (cache.Backend, error) {
		if redisClient == nil {
			return nil, nil
		}
		return redisClient, nil
	}, cache.WithLogger(log), cache.WithMetrics(platformMetrics))

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.CACertPath = cfg.Database.CACertPath
	pool, err := database.New(dbCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	var requestLog service.Store = store.NewInMemoryStore()
	if pool != nil {
		defer pool.Close() //nolint:errcheck // best-effort on shutdown
		requestLog = store.NewPostgresStore(pool.DB())
		healthHandler.RegisterCheck("database", pool.Health)
		log.Info("request log backed by postgres")
	}

	auditSink, closeAudit, err := buildAuditSink(ctx, cfg.Kafka, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeAudit()
	inbox := make(chan audit.Event, auditInboxSize)
	auditor := audit.NewPublisher(auditSink, audit.WithLogger(log), audit.WithInbox(inbox))
	go func() {
		if err := audit.NewWorker(auditSink, inbox, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	svc, err := service.New(vendor, engine, assembler, requestLog,
		service.Config{TestMode: cfg.TestMode(), CacheTTL: cfg.VerifyCacheTTL},
		service.WithLogger(log),
		service.WithMetrics(verifyMetrics),
		service.WithTracer(tracer.NewOTel(nil)),
		service.WithCache(responseCache),
		service.WithAuditor(auditor),
	)
	if err != nil {
		return fmt.Errorf("create verification service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      platformMetrics,
		Gatherer:     reg,
		APIKeys:      cfg.APIKeys,
		BodyLimit:    cfg.BodyLimit,
		Health:       healthHandler,
		Verification: handler.New(svc, log),
	})
	srv := httpserver.New(cfg.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildAuditSink selects the Kafka sink when brokers are configured and the
// in-memory sink otherwise.
func buildAuditSink(ctx context.Context, cfg config.Kafka, log *slog.Logger, h *health.Handler) (audit.Store, func(), error) {
	if cfg.Brokers == "" {
		log.Info("audit events kept in memory")
		return audit.NewInMemoryStore(), func() {}, nil
	}

	if err := kafka.EnsureTopic(ctx, cfg.Brokers, cfg.AuditTopic, auditTopicPartitions); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
	}
	producer, err := kafka.NewProducer(kafka.Config{
		Brokers:         cfg.Brokers,
		DeliveryTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create audit producer: %w", err)
	}
	h.RegisterCheck("kafka", producer.Health)
	log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	return audit.NewKafkaStore(producer, cfg.AuditTopic), func() { _ = producer.Close() }, nil
}
