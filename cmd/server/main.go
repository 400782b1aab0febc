package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/epickup-dispatch/internal/config"
	"github.com/example/epickup-dispatch/internal/dispatch"
	"github.com/example/epickup-dispatch/internal/geo"
	httpapi "github.com/example/epickup-dispatch/internal/http"
	"github.com/example/epickup-dispatch/internal/ingest"
	"github.com/example/epickup-dispatch/internal/logging"
	"github.com/example/epickup-dispatch/internal/match"
	"github.com/example/epickup-dispatch/internal/payments"
	"github.com/example/epickup-dispatch/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var locations geo.Store
	if cfg.RedisAddr != "" {
		locations = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory location index")
		locations = geo.NewIndex()
	}

	var store match.AssignmentStore
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresAssignments(cfg.PGDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pg.Close()
		store = pg
	} else {
		logger.Warn("PG_DSN not set, using in-memory assignment store")
		store = storage.NewMemoryAssignments()
	}

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	wsreg := dispatch.NewWSRegistry()
	broker := dispatch.NewBroker()
	var sink match.NotificationSink = wsreg
	if cfg.PushEndpoint != "" {
		sink = &dispatch.FallbackSink{WS: wsreg, Push: dispatch.NewPushSink(cfg.PushEndpoint, cfg.PushKey)}
	}

	coordinator := match.NewCoordinator(locations, sink, broker, store, match.Config{
		InitialRadiusKm: cfg.MatchInitialRadiusKm,
		MaxRadiusKm:     cfg.MatchMaxRadiusKm,
		ProposalTimeout: cfg.ProposalTimeout,
		MaxCandidates:   cfg.MatchMaxCandidates,
	}, logger)

	var stripeClient *payments.StripeClient
	if cfg.StripeKey != "" {
		stripeClient = payments.NewStripeClient(cfg.StripeKey)
	}

	srv := httpapi.NewServer(httpapi.Options{
		Coordinator: coordinator,
		Geo:         locations,
		Kafka:       producer,
		WSReg:       wsreg,
		Broker:      broker,
		Payments:    stripeClient,
		FeeCents:    cfg.DeliveryFeeCents,
		FeeCurrency: cfg.FeeCurrency,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("dispatch api listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
