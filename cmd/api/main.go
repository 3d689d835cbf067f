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

	"github.com/fastprodman/seamlesswallet/internal/api"
	"github.com/fastprodman/seamlesswallet/internal/events"
	"github.com/fastprodman/seamlesswallet/internal/idempotency"
	"github.com/fastprodman/seamlesswallet/internal/infra/logging"
	"github.com/fastprodman/seamlesswallet/internal/infra/metrics"
	"github.com/fastprodman/seamlesswallet/internal/infra/pgutils"
	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/memstore"
	"github.com/fastprodman/seamlesswallet/internal/repos/pgstore"
	"github.com/fastprodman/seamlesswallet/internal/services/callback"
	"github.com/fastprodman/seamlesswallet/internal/services/ledger"
	"github.com/fastprodman/seamlesswallet/pkg/envconf"
	"github.com/fastprodman/seamlesswallet/pkg/shutdownqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// --- Infra ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []ledger.Option{ledger.WithMetrics(m)}

	if cfg.Redis.Enabled() {
		rdb, err := idempotency.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}

		shutdownqueue.Add("redis", func(context.Context) error { return rdb.Close() })
		opts = append(opts, ledger.WithIdempotencyCache(idempotency.NewRedisCache(rdb, cfg.Redis.SeenTTL)))

		slog.Info("idempotency cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.SeenTTL)
	}

	if cfg.Kafka.Enabled() {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.EntriesTopic, cfg.Kafka.WriteTimeout)

		shutdownqueue.Add("kafka", func(context.Context) error { return pub.Close() })
		opts = append(opts, ledger.WithPublisher(pub))

		slog.Info("ledger entry feed enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.EntriesTopic)
	}

	svc := ledger.New(store, opts...)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewRouter(api.Deps{
		Callbacks:  callback.NewDispatcher(svc, m, svc.Now),
		Entries:    svc,
		Health:     store,
		Gatherer:   reg,
		AdminToken: cfg.AdminToken,
	}))

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port, "store", cfg.StoreDriver)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func openStore(ctx context.Context, cfg *apiConfig) (repos.Store, error) {
	if cfg.StoreDriver == storeMemory {
		slog.Warn("using in-memory store; balances are lost on restart")
		return memstore.New(), nil
	}

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error { return db.Close() })

	return pgstore.New(db), nil
}
