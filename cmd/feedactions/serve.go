package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Feedactions/internal/action"
	"github.com/shaiso/Feedactions/internal/api"
	"github.com/shaiso/Feedactions/internal/catalog"
	"github.com/shaiso/Feedactions/internal/config"
	"github.com/shaiso/Feedactions/internal/dispatch"
	"github.com/shaiso/Feedactions/internal/journal"
	"github.com/shaiso/Feedactions/internal/mq"
	"github.com/shaiso/Feedactions/internal/pool"
	"github.com/shaiso/Feedactions/internal/repo"
	"github.com/shaiso/Feedactions/internal/scheduler"
	"github.com/shaiso/Feedactions/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the action pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", envOr("FEEDACTIONS_CONFIG", ""), "Path to YAML config")
	return cmd
}

func serve(cfg config.Config) error {
	startTime := time.Now()

	logger := telemetry.SetupLogger()
	instance := uuid.New()
	logger.Info("starting feedactions", "version", version, "instance", instance)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sinks := map[string]journal.Sink{}

	// PostgreSQL (опционально): журнал итогов и /history
	var history api.HistoryStore
	if cfg.DatabaseURL != "" {
		db, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := repo.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database connected")

		outcomes := repo.NewOutcomeRepo(db, instance)
		sinks["postgres"] = outcomes
		history = outcomes
	}

	// RabbitMQ (опционально): приём запросов и события action.finished
	var mqConn *mq.Connection
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, serving HTTP only", "error", err)
		} else {
			defer conn.Close()
			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			mqConn = conn
			sinks["rabbitmq"] = mq.FinishedSink{Publisher: mq.NewPublisher(conn, logger), Instance: instance}
		}
	}

	jrnl := journal.New(journal.Config{Sinks: sinks, Logger: logger})
	jrnl.Start()

	// Пул
	var p *pool.Pool
	metrics := telemetry.NewPoolMetrics(prometheus.DefaultRegisterer, telemetry.PoolGauges{
		InFlight: func() int { return p.InFlight() },
		Active:   func() int { return p.Statistic().Active },
		Workers:  func() int { return p.Statistic().Workers },
	})

	pcfg := cfg.ToPool()
	pcfg.Logger = logger
	pcfg.Listener = pool.MultiListener{metrics, jrnl}

	p, err := pool.New(pcfg)
	if err != nil {
		return err
	}
	// Реестр функций закрывается до первого action.
	action.Default().Freeze()
	if err := p.Start(); err != nil {
		return err
	}

	// Приём запросов
	cat, err := catalog.New(nil, cfg.CatalogDefinitions())
	if err != nil {
		p.Stop()
		return err
	}

	if cfg.Secret == "" {
		logger.Warn("ACTION_SECRET is empty, using a random secret: links are valid until restart")
	}
	signer, err := dispatch.NewSigner(cfg.Secret)
	if err != nil {
		p.Stop()
		return err
	}

	dispatcher := dispatch.New(dispatch.Config{Signer: signer, Catalog: cat, Pool: p, Logger: logger})

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueActionsRequested,
			Handler: dispatcher.QueueHandler(),
		})
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	sched, err := scheduler.New(scheduler.Config{
		Pool:     p,
		Stats:    cfg.Schedule.Stats,
		Liveness: cfg.Schedule.Liveness,
		Logger:   logger,
	})
	if err != nil {
		p.Stop()
		return err
	}
	sched.Start()

	// HTTP
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if p.State() != pool.StateStarted {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "pool %s", p.State())
			return
		}
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(api.Config{
		Dispatcher: dispatcher,
		Stats:      p,
		History:    history,
		Requests:   telemetry.NewHTTPRequests(prometheus.DefaultRegisterer),
		Logger:     logger,
	}).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	shutdown(logger, server, sched, p, jrnl)
	return nil
}

// shutdown останавливает компоненты от входа к выходу: новые запросы,
// cron, пул, затем журнал дописывает оставшиеся записи.
func shutdown(logger *slog.Logger, server *http.Server, sched *scheduler.Scheduler, p *pool.Pool, jrnl *journal.Journal) {
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if err := sched.Stop(ctx); err != nil {
		logger.Warn("scheduler did not stop in time", "error", err)
	}

	p.Stop()
	logger.Info("action pool stopped", "statistic", p.Statistic().String())

	if err := jrnl.Stop(ctx); err != nil {
		logger.Warn("journal did not flush in time", "error", err, "dropped", jrnl.Dropped())
	}

	logger.Info("stopped")
}
