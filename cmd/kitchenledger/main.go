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

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/kitchenledger/cmd/kitchenledger/cli"
	"github.com/kitchenledger/kitchenledger/internal/app"
	"github.com/kitchenledger/kitchenledger/internal/auth"
	"github.com/kitchenledger/kitchenledger/internal/customers"
	"github.com/kitchenledger/kitchenledger/internal/dashboard"
	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/expenses"
	"github.com/kitchenledger/kitchenledger/internal/menu"
	"github.com/kitchenledger/kitchenledger/internal/observability"
	"github.com/kitchenledger/kitchenledger/internal/orders"
	"github.com/kitchenledger/kitchenledger/internal/platform/cache"
	"github.com/kitchenledger/kitchenledger/internal/platform/db"
	"github.com/kitchenledger/kitchenledger/internal/shared"
	"github.com/kitchenledger/kitchenledger/internal/suppliers"
	"github.com/kitchenledger/kitchenledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	if len(args) > 0 && args[0] != "serve" {
		if err := runCommand(ctx, cfg, args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}
	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, args []string) error {
	switch args[0] {
	case "user":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		return cli.RunUser(ctx, args[1:], auth.NewRepository(pool), os.Stdout)
	case "jobs":
		opts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := jobs.NewClient(opts)
		defer client.Close()
		inspector := asynq.NewInspector(opts)
		defer inspector.Close()
		return cli.RunJobs(ctx, args[1:], cli.NewJobsCLI(client, inspector), os.Stdout)
	default:
		return fmt.Errorf("%w: kitchenledger [serve | user add | jobs trigger <name> | jobs stats]", cli.ErrUsage)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "kitchenledger_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	dashboardCache := cache.NewVersioned(redisClient, dashboard.CacheNamespace, cfg.DashboardCacheTTL)
	publisher := events.Multi{dashboard.Invalidator{Cache: dashboardCache}}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.Warn("amqp unavailable, events stay local", slog.Any("error", err))
		} else {
			defer amqpPublisher.Close()
			publisher = append(publisher, amqpPublisher)
		}
	}

	loc := cfg.Location()
	ordersService := orders.NewService(orders.NewRepository(pool), publisher, logger)
	customersService := customers.NewService(customers.NewRepository(pool), publisher, logger)
	expensesService := expenses.NewService(expenses.NewRepository(pool), publisher, logger, loc)
	suppliersService := suppliers.NewService(suppliers.NewRepository(pool), publisher, logger, loc)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, logger, loc)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      auth.NewHandler(logger, auth.NewService(auth.NewRepository(pool)), sessionManager, csrfManager),
		CustomersHandler: customers.NewHandler(logger, customersService),
		OrdersHandler:    orders.NewHandler(logger, ordersService),
		MenuHandler:      menu.NewHandler(logger, menu.NewRepository(pool)),
		ExpensesHandler:  expenses.NewHandler(logger, expensesService),
		SuppliersHandler: suppliers.NewHandler(logger, suppliersService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
