package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"attributionHub/internal/config"
	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
	"attributionHub/internal/storage"
	"attributionHub/internal/storage/postgres"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history []model.ChangeSet
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		snapshot, err := store.LoadState(ctx)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		history = snapshotHistory(snapshot)
	case cfg.AuditOut != "":
		history, err = storage.LoadChangeLog(cfg.AuditOut)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("pg-dsn or audit-out is required")
	}

	c, err := coordinator.New(coordinator.Options{ClaimCooldown: cfg.ClaimCooldown, Logger: logger})
	if err != nil {
		return err
	}
	for _, changes := range history {
		c.Restore(changes)
	}

	return printStatus(cmd.OutOrStdout(), c)
}

func printStatus(w io.Writer, c *coordinator.Coordinator) error {
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	schedule := c.GetFeeSchedule()
	timing := c.GetBudgetRemovalTiming()
	fmt.Fprintf(out, "sequence\t%d\n", c.Sequence())
	fmt.Fprintf(out, "paused\t%t\n", c.Paused())
	fmt.Fprintf(out, "claim cooldown\t%s\n", c.ClaimCooldown())
	fmt.Fprintf(out, "protocol fee\t%s\n", formatRate(schedule.ProtocolFeeRate))
	fmt.Fprintf(out, "client fee\t%s\n", formatRate(schedule.ClientFeeRate))
	fmt.Fprintf(out, "attributor fee\t%s\n", formatRate(schedule.AttributorFeeRate))
	fmt.Fprintf(out, "nft fee\t%s %s\n", schedule.NFTFeeAmount.Dec(), schedule.NFTFeeCurrency.Hex())
	fmt.Fprintf(out, "fee collector\t%s\n", schedule.FeeCollector.Hex())
	fmt.Fprintf(out, "budget removal\tcooldown %s, window %s\n", timing.Cooldown, timing.Window)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "CURRENCY\tTYPE\tACTIVE\tLIMIT\tWINDOW TOTAL\tUSED\tWINDOW START")
	for _, entry := range c.ListCurrencies() {
		fmt.Fprintf(out, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			entry.Address.Hex(),
			entry.TokenType,
			entry.Active,
			entry.ClaimLimit.Dec(),
			entry.CumulativeClaimed.Dec(),
			utilization(entry),
			entry.WindowStartedAt.UTC().Format(time.RFC3339),
		)
	}
	return out.Flush()
}

// formatRate renders basis points as a percentage.
func formatRate(rate uint64) string {
	return decimal.NewFromInt(int64(rate)).Shift(-2).String() + "%"
}

func utilization(entry model.CurrencyEntry) string {
	if entry.ClaimLimit == nil || entry.ClaimLimit.IsZero() || entry.CumulativeClaimed == nil {
		return "-"
	}
	used := decimal.NewFromBigInt(entry.CumulativeClaimed.ToBig(), 0)
	limit := decimal.NewFromBigInt(entry.ClaimLimit.ToBig(), 0)
	return used.Div(limit).Shift(2).StringFixed(2) + "%"
}
