package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	campaignshandler "github.com/loyaltycore/campaigns-api/domains/campaigns/be/handler"
	campaignsrepo "github.com/loyaltycore/campaigns-api/domains/campaigns/be/repo"
	campaignsservice "github.com/loyaltycore/campaigns-api/domains/campaigns/be/service"
	challengeshandler "github.com/loyaltycore/campaigns-api/domains/challenges/be/handler"
	challengesrepo "github.com/loyaltycore/campaigns-api/domains/challenges/be/repo"
	challengesservice "github.com/loyaltycore/campaigns-api/domains/challenges/be/service"
	participantshandler "github.com/loyaltycore/campaigns-api/domains/participants/be/handler"
	participantsrepo "github.com/loyaltycore/campaigns-api/domains/participants/be/repo"
	participantsservice "github.com/loyaltycore/campaigns-api/domains/participants/be/service"
	tenantshandler "github.com/loyaltycore/campaigns-api/domains/tenants/be/handler"
	tenantsrepo "github.com/loyaltycore/campaigns-api/domains/tenants/be/repo"
	tenantsservice "github.com/loyaltycore/campaigns-api/domains/tenants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/events"
	platformlogging "github.com/loyaltycore/campaigns-api/platform/go/logging"
	platformmiddleware "github.com/loyaltycore/campaigns-api/platform/go/middleware"
	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
	tenantmiddleware "github.com/loyaltycore/campaigns-api/platform/go/tenant/middleware"
)

type config struct {
	Port              string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	AMQPURL           string        `env:"AMQP_URL"`
	IngestionExchange string        `env:"INGESTION_EXCHANGE" envDefault:"challenges.ingestion"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if err := persistence.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	tenantStore, err := persistence.NewTenantStore(pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	campaignStore, err := persistence.NewCampaignStore(pool)
	if err != nil {
		logger.Fatal("init campaign store", zap.Error(err))
	}
	challengeStore, err := persistence.NewChallengeStore(pool)
	if err != nil {
		logger.Fatal("init challenge store", zap.Error(err))
	}
	participantStore, err := persistence.NewParticipantStore(pool)
	if err != nil {
		logger.Fatal("init participant store", zap.Error(err))
	}

	var publisher challengesservice.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewPublisher(cfg.AMQPURL, cfg.IngestionExchange, logger)
		if err != nil {
			logger.Fatal("init ingestion publisher", zap.Error(err))
		}
		defer func() {
			_ = amqpPublisher.Close()
		}()
		publisher = amqpPublisher
	} else {
		logger.Warn("AMQP_URL not set, ingestion events disabled")
	}

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore))
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	challengeService := challengesservice.New(
		challengesrepo.NewPostgresRepository(challengeStore), publisher, logger)
	challengeHTTPHandler := challengeshandler.New(challengeService, logger)

	campaignService := campaignsservice.New(
		campaignsrepo.NewPostgresRepository(campaignStore), challengeService)
	campaignHTTPHandler := campaignshandler.New(campaignService, logger)

	participantService := participantsservice.New(
		participantsrepo.NewPostgresRepository(participantStore),
		campaignsrepo.NewDirectory(campaignStore))
	participantHTTPHandler := participantshandler.New(participantService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(tenantmiddleware.AccessGate(tenantService.ResolveOrCreate, logger))

	tenantHTTPHandler.Register(apiRouter)
	campaignHTTPHandler.Register(apiRouter)
	challengeHTTPHandler.Register(apiRouter)
	participantHTTPHandler.Register(apiRouter)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
