package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/student-expense-tracker/internal/domain/chat"
	chathandler "github.com/FACorreiaa/student-expense-tracker/internal/domain/chat/handler"
	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	ledgerhandler "github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger/handler"

	"github.com/FACorreiaa/student-expense-tracker/pkg/config"
	"github.com/FACorreiaa/student-expense-tracker/pkg/cron"
	"github.com/FACorreiaa/student-expense-tracker/pkg/db"
	"github.com/FACorreiaa/student-expense-tracker/pkg/gemini"
	"github.com/FACorreiaa/student-expense-tracker/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time

	// Store
	Store ledger.Store

	// Services
	CategorizationService *categorization.Service
	LedgerService         *ledger.Service
	ChatService           *chat.Service
	Oracle                chat.Oracle
	Scheduler             *cron.Scheduler

	// Handlers
	LedgerHandler *ledgerhandler.LedgerHandler
	ChatHandler   *chathandler.ChatHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	loc := cfg.Ledger.Location()
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Clock:   func() time.Time { return time.Now().In(loc) },
	}

	if err := deps.initStore(); err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.String("store", cfg.Database.Store),
		slog.Bool("oracle_enabled", cfg.Gemini.Enabled()),
		slog.String("timezone", loc.String()),
	)

	return deps, nil
}

// initStore selects the record store backend. Postgres runs migrations first.
func (d *Dependencies) initStore() error {
	if d.Config.Database.Store != config.StorePostgres {
		d.Store = ledger.NewMemoryStore(d.Config.Ledger.DefaultBudget, ledger.WithClock(d.Clock))
		d.Logger.Info("using in-memory record store")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Store = ledger.NewPostgresStore(d.DB.Pool, d.Config.Ledger.DefaultBudget)
	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	categories, err := categorization.NewService(nil, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to build categorizer: %w", err)
	}
	d.CategorizationService = categories

	d.LedgerService = ledger.NewService(d.Store, categories, d.Logger).WithClock(d.Clock)

	d.Oracle = chat.UnavailableOracle{}
	if d.Config.Gemini.Enabled() {
		client, err := gemini.New(ctx, d.Config.Gemini.APIKey, d.Config.Gemini.Model, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		d.Oracle = client
	} else {
		d.Logger.Warn("GEMINI_API_KEY not set, chat will answer from the fast path only")
	}

	d.ChatService = chat.NewService(
		d.Store,
		d.Oracle,
		categories,
		chat.Options{OracleTimeout: d.Config.Gemini.Timeout},
		d.Metrics,
		d.Logger,
	).WithClock(d.Clock)

	d.Scheduler = cron.NewScheduler(
		d.LedgerService,
		d.Config.Ledger.ResetSchedule,
		d.Config.Ledger.Location(),
		d.Metrics,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all HTTP handlers
func (d *Dependencies) initHandlers() {
	d.LedgerHandler = ledgerhandler.NewLedgerHandler(d.LedgerService, d.Config.Ledger.Location(), d.Logger)
	d.ChatHandler = chathandler.NewChatHandler(d.ChatService, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() {
	if d.CategorizationService != nil {
		if err := d.CategorizationService.Close(); err != nil {
			d.Logger.Warn("failed to close categorizer", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
