package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/internal/server"
	"github.com/richardissailing/fantastic-spoon/modules"
	"github.com/richardissailing/fantastic-spoon/modules/changes"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/cache"
	"github.com/richardissailing/fantastic-spoon/pkg/configuration"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
	"github.com/richardissailing/fantastic-spoon/pkg/logging"
	"github.com/richardissailing/fantastic-spoon/pkg/metrics"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
	eventbusdispatcher "github.com/richardissailing/fantastic-spoon/pkg/outbox/dispatchers/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	outboxTable, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		log.Fatalf("invalid OUTBOX_TABLE: %v", err)
	}

	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: bus,
		Logger:   logger,
	})
	changesOpts := &changes.ModuleOptions{
		OutboxTable: outboxTable,
		StatsCache:  statsCache(conf, logger),
	}
	if err := modules.Load(app, modules.BuiltInModules(changesOpts)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, prometheus.DefaultGatherer))
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startOutboxBackground(runCtx, conf, pool, outboxTable, logger, bus)

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	conf.Unload()
}

// statsCache returns nil unless the redis snapshot cache is enabled and reachable.
func statsCache(conf *configuration.Configuration, logger *logrus.Logger) services.SnapshotCache {
	if !conf.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedisClient(conf.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("stats cache disabled: invalid REDIS_URL")
		return nil
	}
	return cache.NewJSON(client, "changes:stats:", conf.Cache.TTL)
}

func startOutboxBackground(
	ctx context.Context,
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	table pgx.Identifier,
	logger *logrus.Logger,
	bus eventbus.EventBusWithError,
) {
	outboxLog := logger.WithFields(logrus.Fields{
		"component": "outbox",
		"table":     outbox.TableLabel(table),
	})

	if conf.Outbox.RelayEnabled {
		relay, err := outbox.NewRelay(pool, table, eventbusdispatcher.New(bus), outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			SingleActive:    conf.Outbox.RelaySingleActive,
			LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
			DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
			Logger:          outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create relay")
		} else {
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					outboxLog.WithError(err).Error("outbox: relay stopped")
				}
			}()
		}
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(pool, table, outbox.CleanerOptions{
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create cleaner")
			return
		}
		go func() {
			if err := cleaner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				outboxLog.WithError(err).Error("outbox: cleaner stopped")
			}
		}()
	}
}
