package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "coordinator",
		Short:        "Attribution protocol coordinator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	classifyCmd := &cobra.Command{
		Use:   "classify <address>...",
		Short: "Classify currency addresses by token standard",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runClassify,
	}
	classifyCmd.Flags().String("rpc", "", "EVM RPC URL")
	classifyCmd.Flags().String("coordinator-address", "", "account used as holder in fungible probes")
	classifyCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	classifyCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	classifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(classifyCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operation log through the coordinator",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("rpc", "", "EVM RPC URL; empty runs projects offline")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	replayCmd.Flags().String("in", "./data/operations.jsonl", "input operations JSONL")
	replayCmd.Flags().String("audit-out", "", "append committed change sets to this JSONL file")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Duration("claim-cooldown", 24*time.Hour, "claim rate limit window")
	replayCmd.Flags().Duration("removal-cooldown", 7*24*time.Hour, "budget removal cooldown")
	replayCmd.Flags().Duration("removal-window", 24*time.Hour, "budget removal window")
	replayCmd.Flags().String("fee-collector", "", "initial fee collector")
	replayCmd.Flags().StringSlice("admins", nil, "initial admin accounts (comma-separated)")
	replayCmd.Flags().StringSlice("attributors", nil, "initial attributor accounts (comma-separated)")
	replayCmd.Flags().StringSlice("pausers", nil, "initial pauser accounts (comma-separated)")
	replayCmd.Flags().StringSlice("projects", nil, "project contract addresses (comma-separated)")
	replayCmd.Flags().String("coordinator-address", "", "coordinator address used as eth_call sender")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(replayCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print persisted coordinator state",
		RunE:  runStatus,
	}
	statusCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	statusCmd.Flags().String("audit-out", "", "change set JSONL to read when no DSN is set")
	statusCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(statusCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
