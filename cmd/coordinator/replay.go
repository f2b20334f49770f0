package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attributionHub/internal/chain"
	"attributionHub/internal/config"
	"attributionHub/internal/coordinator"
	"attributionHub/internal/metrics"
	"attributionHub/internal/model"
	"attributionHub/internal/probe"
	"attributionHub/internal/project"
	"attributionHub/internal/replay"
	"attributionHub/internal/storage"
	"attributionHub/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory := project.NewDirectory()
	var classifier probe.Classifier
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.RetryConfig{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff})
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		classifier = probe.NewProber(chainClient, cfg.CoordinatorAddress, logger)
		for _, address := range cfg.Projects {
			if err := directory.Register(address, project.NewEVMBackend(chainClient, address, cfg.CoordinatorAddress)); err != nil {
				return err
			}
		}
	} else {
		logger.Warn("no rpc configured, projects settle offline and only the native currency can be registered")
		for _, address := range cfg.Projects {
			if err := directory.Register(address, project.NewPassthrough()); err != nil {
				return err
			}
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		server := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	persisters, history, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	clock := &replay.Clock{}
	c, err := coordinator.New(coordinator.Options{
		Classifier:    classifier,
		Projects:      directory,
		Persister:     persisters,
		Metrics:       m,
		Logger:        logger,
		Clock:         clock.Now,
		ClaimCooldown: cfg.ClaimCooldown,
		Fees:          model.FeeSchedule{FeeCollector: cfg.FeeCollector},
		Timing:        model.RemovalTiming{Cooldown: cfg.RemovalCooldown, Window: cfg.RemovalWindow},
	})
	if err != nil {
		return err
	}
	roles := coordinator.InitialRoles{Admins: cfg.Admins, Attributors: cfg.Attributors, Pausers: cfg.Pausers}
	if err := restoreState(ctx, c, history, roles, logger); err != nil {
		return err
	}

	input, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	logger.Info("replay start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pg_dsn", config.RedactDSN(cfg.PGDSN)),
		zap.String("in", cfg.In),
		zap.String("audit_out", cfg.AuditOut),
		zap.Int("projects", len(cfg.Projects)),
		zap.Duration("claim_cooldown", cfg.ClaimCooldown),
		zap.Uint64("restored_sequence", c.Sequence()),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	runner := replay.NewRunner(replay.RunConfig{
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, c, clock, logger)

	summary, err := runner.Run(ctx, input)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logger.Warn("some operations were rejected", zap.Int("failed", summary.Failed))
	}
	return nil
}

// openStores opens the configured persisters and returns the change sets
// needed to rebuild state. Postgres wins over the audit log as the source.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Multi, []model.ChangeSet, func(), error) {
	var persisters storage.Multi
	var history []model.ChangeSet
	closeFn := func() {}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, closeFn, fmt.Errorf("connect postgres: %w", err)
		}
		closeFn = store.Close
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, func() {}, err
		}
		snapshot, err := store.LoadState(ctx)
		if err != nil {
			store.Close()
			return nil, nil, func() {}, fmt.Errorf("load state: %w", err)
		}
		history = snapshotHistory(snapshot)
		persisters = append(persisters, store)
	}

	if cfg.AuditOut != "" {
		if cfg.PGDSN == "" {
			loaded, err := storage.LoadChangeLog(cfg.AuditOut)
			if err != nil {
				closeFn()
				return nil, nil, func() {}, err
			}
			history = loaded
			logger.Info("restored from audit log", zap.Int("change_sets", len(loaded)))
		}
		persisters = append(persisters, storage.NewChangeLog(cfg.AuditOut))
	}

	return persisters, history, closeFn, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))
	return server
}
