package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/config"
	"github.com/FACorreiaa/student-expense-tracker/pkg/db"
	"github.com/FACorreiaa/student-expense-tracker/pkg/money"
)

type seedOptions struct {
	days     int
	expenses int
	debts    int
	seed     int64
	csv      bool
}

func newRootCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate expenses and debts",
		Long: `Generate realistic student expenses and peer debts.

With STORE_TYPE=postgres the records are written to the configured database.
With the memory store use --csv to print them in the import format instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			return runSeed(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 45, "spread expenses over this many past days")
	cmd.Flags().IntVar(&opts.expenses, "expenses", 60, "number of expenses to generate")
	cmd.Flags().IntVar(&opts.debts, "debts", 5, "number of debts to generate")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, 0 for a random one")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write generated expenses as CSV to stdout")

	return cmd
}

func runSeed(ctx context.Context, cfg *config.Config, opts *seedOptions, out io.Writer, logger *slog.Logger) error {
	if opts.days < 1 || opts.expenses < 0 || opts.debts < 0 {
		return fmt.Errorf("days must be positive and counts non-negative")
	}

	loc := cfg.Ledger.Location()
	now := time.Now().In(loc)

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	gen := ledger.NewTestDataGenerator()
	if opts.seed != 0 {
		gen = ledger.NewTestDataGeneratorWithSeed(opts.seed)
	}
	if err := gen.Seed(ctx, store, now, opts.days, opts.expenses, opts.debts); err != nil {
		return err
	}

	svc := ledger.NewService(store, nil, logger).WithClock(func() time.Time { return now })
	if opts.csv {
		return svc.ExportCSV(ctx, out, ledger.ExpenseFilter{})
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d expenses and %d debts\n", opts.expenses, opts.debts)
	fmt.Fprintf(out, "today %s, month %s, budget left %s\n",
		money.Format(stats.TodayTotal), money.Format(stats.MonthTotal), money.Format(stats.BudgetLeft))
	return nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (ledger.Store, func(), error) {
	if cfg.Database.Store != config.StorePostgres {
		return ledger.NewMemoryStore(cfg.Ledger.DefaultBudget), func() {}, nil
	}

	database, err := db.New(db.Config{DSN: cfg.Database.DSN(), MaxConns: 2}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, nil, err
	}
	return ledger.NewPostgresStore(database.Pool, cfg.Ledger.DefaultBudget), database.Close, nil
}
