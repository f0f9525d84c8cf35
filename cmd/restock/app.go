package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"example.com/restock/internal/config"
	"example.com/restock/internal/history"
	"example.com/restock/internal/kafka"
	"example.com/restock/internal/logging"
	"example.com/restock/internal/purchase"
	"example.com/restock/internal/retry"
	"example.com/restock/internal/sqliteutil"
	"example.com/restock/internal/status"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
	"example.com/restock/internal/supervisor"
)

func appOptions() []fx.Option {
	return append(graph(), fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
	}))
}

func graph() []fx.Option {
	return []fx.Option{
		fx.Provide(
			config.Load,
			newLogger,
			newTasks,
			newHistory,
			newProducer,
			newSinks,
			newRunner,
			newSupervisor,
		),
		fx.Invoke(runSupervisor, serveStatus),
	}
}

func newLogger(s config.Settings) *slog.Logger {
	return logging.New(s.Log.Level, s.Log.Format)
}

func newTasks(s config.Settings) ([]config.Task, error) {
	return config.LoadTasks(s.ConfigPath)
}

// newHistory returns nil when HISTORY_DB is unset.
func newHistory(lc fx.Lifecycle, s config.Settings) (*history.Store, error) {
	if s.History.DBPath == "" {
		return nil, nil
	}
	ctx := context.Background()
	db, err := sqliteutil.Open(ctx, s.History.DBPath)
	if err != nil {
		return nil, err
	}
	store := history.NewStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	lc.Append(fx.StopHook(db.Close))
	return store, nil
}

// newProducer returns nil when KAFKA_BROKERS is unset.
func newProducer(lc fx.Lifecycle, s config.Settings) *kafka.Producer {
	if s.Kafka.Brokers == "" {
		return nil
	}
	p := kafka.NewProducer(s.Kafka.Brokers, s.Kafka.Topic)
	lc.Append(fx.StopHook(p.Close))
	return p
}

func newSinks(h *history.Store, p *kafka.Producer) []stock.Sink {
	var sinks []stock.Sink
	if h != nil {
		sinks = append(sinks, h)
	}
	if p != nil {
		sinks = append(sinks, p)
	}
	return sinks
}

// newRunner picks the Temporal runner when TEMPORAL_HOSTPORT is set and the
// in-process runner otherwise.
func newRunner(lc fx.Lifecycle, s config.Settings, logger *slog.Logger) (purchase.Runner, error) {
	if s.Temporal.HostPort == "" {
		return purchase.LocalRunner{}, nil
	}
	c, err := client.Dial(client.Options{
		HostPort:  s.Temporal.HostPort,
		Namespace: s.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	queue := purchase.InstanceTaskQueue(s.Temporal.TaskQueue)
	registry := purchase.NewRegistry()
	w := purchase.RegisterCycleWorker(c, queue, registry, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return w.Start()
		},
		OnStop: func(context.Context) error {
			w.Stop()
			c.Close()
			return nil
		},
	})
	logger.Info("temporal checkout runner enabled", "task_queue", queue)
	return purchase.NewTemporalRunner(c, queue, registry, logger), nil
}

func supervisorOptions(s config.Settings, sinks []stock.Sink, runner purchase.Runner) supervisor.Options {
	backoff := s.Purchase.RetryBackoff
	return supervisor.Options{
		PollInterval:    s.Monitor.PollInterval,
		ChannelCapacity: s.Monitor.ChannelCapacity,
		Policies: purchase.Policies{
			Session: retry.Policy{MaxAttempts: s.Purchase.SessionAttempts, Backoff: backoff},
			Order:   retry.Policy{MaxAttempts: s.Purchase.OrderAttempts, Backoff: backoff},
			Address: retry.Policy{MaxAttempts: s.Purchase.AddressAttempts, Backoff: backoff},
		},
		RefreshVariants: s.Purchase.RefreshVariants,
		PaymentMethodID: s.Purchase.PaymentMethodID,
		Sinks:           sinks,
		Runner:          runner,
	}
}

func storefrontFactory(s config.Settings) supervisor.StorefrontFactory {
	headers := storefront.DefaultHeaders()
	if s.Storefront.UserAgent != "" {
		headers.UserAgent = s.Storefront.UserAgent
	}
	return supervisor.StorefrontFactory{BaseURL: s.Storefront.BaseURL, Timeout: s.Storefront.Timeout, Headers: headers}
}

func newSupervisor(s config.Settings, tasks []config.Task, sinks []stock.Sink, runner purchase.Runner, logger *slog.Logger) *supervisor.Supervisor {
	return supervisor.New(tasks, storefrontFactory(s), supervisorOptions(s, sinks, runner), logger)
}

// runSupervisor runs the unit graph for the lifetime of the app and shuts the
// app down once every unit has terminated.
func runSupervisor(lc fx.Lifecycle, shutdowner fx.Shutdowner, sup *supervisor.Supervisor, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				code := 0
				if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("supervisor stopped", "error", err)
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func serveStatus(lc fx.Lifecycle, s config.Settings, sup *supervisor.Supervisor, h *history.Store, logger *slog.Logger) {
	if s.Status.Addr == "" {
		return
	}
	var reader status.HistoryReader
	if h != nil {
		reader = h
	}
	logger = logger.With("component", "status.http")
	server := &http.Server{
		Addr:              s.Status.Addr,
		Handler:           status.NewServer(sup, reader, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("status API listening", "addr", s.Status.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("status server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
