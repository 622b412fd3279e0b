/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the approval ledger server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Load .env and APPROVAL_* environment (config package)
 2. Build the zap logger
 3. Open the store (SQLite, or memory with APPROVAL_DB_PATH=memory)
 4. Load approval limits and accrual rules
 5. Create the engine and register the leave, trip and expense adapters
 6. Start the accrual scheduler and the HTTP server

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests (APPROVAL_SHUTDOWN_TIMEOUT)
	3. Stop the accrual scheduler
	4. Close the database

EXAMPLES:

	# File database, default port
	APPROVAL_DB_PATH=./data/approvals.db ./server

	# In-memory store with demo scenarios
	APPROVAL_DB_PATH=memory APPROVAL_SCENARIOS=true ./server

	# Policy from a rules file
	APPROVAL_POLICY_FILE=./policy.json ./server

SEE ALSO:
  - config/config.go: Every variable and its default
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/approval-ledger/api"
	"github.com/warp/approval-ledger/config"
	"github.com/warp/approval-ledger/expense"
	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/generic/store"
	"github.com/warp/approval-ledger/leave"
	"github.com/warp/approval-ledger/logging"
	"github.com/warp/approval-ledger/metrics"
	"github.com/warp/approval-ledger/policy"
	"github.com/warp/approval-ledger/store/sqlite"
	"github.com/warp/approval-ledger/trip"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	txStore, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rules, err := loadPolicy(cfg)
	if err != nil {
		return err
	}
	logger.Info("policy loaded",
		zap.Strings("approvers", rules.Limits.Actors()),
		zap.Bool("accrual", rules.Accrual != nil))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := generic.NewEngine(generic.EngineConfig{
		Store:        txStore,
		Authorizer:   rules.Limits,
		AccrualRules: rules.Accrual,
		Deps:         generic.Deps{Observer: m, Logger: logger},
	})
	engine.Register(
		leave.NewAdapter(leave.Config{Rules: rules.Accrual, AllowOverdraft: cfg.Policy.AllowLeaveOverdraft}),
		trip.NewAdapter(),
		expense.NewAdapter(expense.Config{AutoPay: cfg.Expense.AutoPay, AllowOverdraft: cfg.Expense.AllowOverdraft}),
	)

	handler := api.NewHandler(engine, logger, api.RetryConfig{
		Attempts: cfg.Retry.Attempts,
		Base:     cfg.Retry.Base,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Scenarios:      cfg.HTTP.Scenarios,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := api.NewAccrualScheduler(engine, logger)
	scheduler.CheckInterval = cfg.Policy.AccrualInterval
	scheduler.Extra = cfg.Policy.AccrualOwners
	if rules.Accrual == nil {
		scheduler.CheckInterval = 0
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.Bool("in_memory", cfg.InMemory()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		scheduler.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config) (generic.TxStore, func(), error) {
	if cfg.InMemory() {
		return store.NewMemory(), func() {}, nil
	}
	s, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}

// loadPolicy prefers the rules file; otherwise limits and a flat monthly
// accrual come from the environment.
func loadPolicy(cfg *config.Config) (*policy.Rules, error) {
	if cfg.Policy.File != "" {
		rules, err := policy.LoadRules(cfg.Policy.File)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		return rules, nil
	}

	limits, err := policy.ParseLimits(cfg.Policy.Limits)
	if err != nil {
		return nil, fmt.Errorf("parse %s_LIMITS: %w", config.EnvPrefix, err)
	}
	rules := &policy.Rules{Limits: limits, Hires: policy.NewHireDates(nil)}
	if cfg.Policy.AccrualDaysPerMonth > 0 {
		rules.Accrual = policy.NewMonthlyAccrual(cfg.Policy.AccrualDaysPerMonth, rules.Hires)
	}
	return rules, nil
}
