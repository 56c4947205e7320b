package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"weatherbet/api"
	"weatherbet/bot"
	"weatherbet/config"
	"weatherbet/database"
	"weatherbet/events"
	"weatherbet/infrastructure"
	"weatherbet/metrics"
	"weatherbet/odds"
	"weatherbet/repository"
	"weatherbet/service"
	"weatherbet/store"
	"weatherbet/weather"
	"weatherbet/worker"
)

// Services groups everything built on top of the store and event bus
type Services struct {
	Odds       *odds.Engine
	Betting    service.BettingService
	Resolution service.ResolutionService
	Retries    *service.RetryQueue
}

// NewServices wires the odds engine, stake gate and both services
func NewServices(cfg *config.Config, st store.Store, bus *events.Bus, provider service.ObservationProvider, recorder service.MetricsRecorder) *Services {
	uowFactory := repository.NewUnitOfWorkFactory(st, bus)
	oddsEngine := odds.NewEngine(time.Now)
	limiter := service.NewRateLimiter(time.Now)
	gate := service.NewStakeGate(limiter, service.DefaultLockReleaseDelay)
	retries := service.NewRetryQueue(uowFactory, time.Now)

	return &Services{
		Odds: oddsEngine,
		Betting: service.NewBettingService(uowFactory, gate, oddsEngine, service.BettingOptions{
			StartingBalance: cfg.StartingBalance,
			Metrics:         recorder,
		}),
		Resolution: service.NewResolutionService(uowFactory, provider, retries, service.ResolutionOptions{
			StartingBalance: cfg.StartingBalance,
			Metrics:         recorder,
		}),
		Retries: retries,
	}
}

// OpenStore connects to the configured document store backend
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store.NewPostgresStore(db), nil

	case config.StoreRedis:
		log.Info("Connecting to redis...")
		st, err := store.NewRedisStore(ctx, store.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return st, nil

	default:
		log.Warn("Using in-memory store, bets are lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func newObservationProvider(cfg *config.Config) *weather.OpenMeteoClient {
	return weather.NewOpenMeteoClient(weather.Config{
		BaseURL:   cfg.WeatherBaseURL,
		Latitude:  cfg.WeatherLatitude,
		Longitude: cfg.WeatherLongitude,
		Timeout:   cfg.WeatherTimeout,
	})
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"store":       cfg.StoreBackend,
	}).Info("Starting weatherbet...")

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Error("Error closing store")
		}
	}()

	eventBus := events.NewBus()

	var natsClient *infrastructure.NATSClient
	if cfg.NATSEnabled() {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		if err := natsClient.EnsureStream(infrastructure.BetEventStream, infrastructure.AllSubjects()); err != nil {
			natsClient.Close()
			return err
		}
		infrastructure.NewNATSEventPublisher(natsClient).Attach(eventBus)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	services := NewServices(cfg, st, eventBus, newObservationProvider(cfg), recorder)

	var notifier *bot.Notifier
	if cfg.DiscordEnabled() {
		notifier, err = bot.New(bot.Config{
			Token:     cfg.DiscordToken,
			ChannelID: cfg.DiscordChannelID,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Discord notifier: %w", err)
		}
		notifier.Attach(eventBus)
	}

	hub := api.NewHub()
	hub.Attach(eventBus)
	server := api.NewServer(services.Betting, services.Resolution, services.Odds, hub, api.Options{
		DefaultOwner: cfg.DefaultOwner,
		Environment:  cfg.Environment,
	})
	server.Start(cfg.HTTPPort)

	metricsServer := metrics.StartServer(cfg.MetricsPort, registry, func(ctx context.Context) error {
		_, _, err := st.Get(ctx, repository.LedgerKey)
		return err
	})

	stopResolution := worker.StartResolutionWorker(ctx, services.Resolution, cfg.SweepInterval)
	stopRetryGC := worker.StartRetryGCWorker(ctx, services.Retries, cfg.RetryGCInterval)

	log.Infof("Weatherbet is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down...")
	stopResolution()
	stopRetryGC()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics server")
	}

	// Let queued notifications go out before their sinks close
	eventBus.Wait()

	if notifier != nil {
		if err := notifier.Close(); err != nil {
			log.WithError(err).Error("Error closing Discord notifier")
		}
	}
	if natsClient != nil {
		natsClient.Close()
	}

	log.Info("Shutdown completed")
	return nil
}

// RunSweep performs a single resolution sweep and exits
func RunSweep(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	eventBus := events.NewBus()
	services := NewServices(cfg, st, eventBus, newObservationProvider(cfg), nil)

	changed, err := services.Resolution.SweepDueBets(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep due bets: %w", err)
	}
	eventBus.Wait()

	for _, bet := range changed {
		log.WithFields(log.Fields{
			"betID":    bet.ID,
			"owner":    bet.Owner,
			"category": bet.Category,
			"status":   bet.Status,
		}).Info(bet.Explanation)
	}
	log.WithField("changed", len(changed)).Info("Sweep finished")
	return nil
}
