package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attributionHub/internal/chain"
	"attributionHub/internal/config"
	"attributionHub/internal/probe"
)

func runClassify(cmd *cobra.Command, args []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	addresses, err := config.ParseAddresses(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.RetryConfig{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	prober := probe.NewProber(chainClient, cfg.CoordinatorAddress, logger)

	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "ADDRESS\tTOKEN TYPE\tSYMBOL\tNAME\tDECIMALS")
	failed := 0
	for _, address := range addresses {
		tokenType, err := prober.Classify(ctx, address)
		if err != nil {
			failed++
			logger.Warn("classify failed", zap.String("address", address.Hex()), zap.Error(err))
			fmt.Fprintf(out, "%s\tunsupported\t-\t-\t-\n", address.Hex())
			continue
		}
		meta, err := probe.FetchMetadata(ctx, chainClient, address, tokenType, logger)
		if err != nil {
			logger.Debug("metadata fetch failed", zap.String("address", address.Hex()), zap.Error(err))
		}
		decimals := "-"
		if meta.Decimals != nil {
			decimals = strconv.Itoa(int(*meta.Decimals))
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", address.Hex(), tokenType, orDash(meta.Symbol), orDash(meta.Name), decimals)
	}
	if err := out.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d addresses could not be classified", failed, len(addresses))
	}
	return nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
