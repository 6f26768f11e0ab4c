package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractbind/internal/abis"
	"contractbind/internal/config"
	"contractbind/internal/contract"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <address>",
		Short: "Print ERC-20 token name, symbol and decimals",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool <address>",
		Short: "Print Uniswap V3 pool tokens, fee, tick spacing and price",
		Args:  cobra.ExactArgs(1),
		RunE:  runPool,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("block", "latest", "block number to read slot0 at")
	return cmd
}

// inspectTarget loads config, validates the address argument and dials the node.
func inspectTarget(ctx context.Context, cmd *cobra.Command, arg string) (config.InspectConfig, common.Address, contract.Backend, *zap.Logger, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return cfg, common.Address{}, nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, common.Address{}, nil, nil, nil, err
	}
	if !common.IsHexAddress(arg) {
		return cfg, common.Address{}, nil, nil, nil, fmt.Errorf("invalid address: %q", arg)
	}
	logger, err := newLogger(cfg.Common)
	if err != nil {
		return cfg, common.Address{}, nil, nil, nil, err
	}
	client, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return cfg, common.Address{}, nil, nil, nil, err
	}
	closeFn := func() {
		client.Close()
		_ = logger.Sync()
	}
	return cfg, common.HexToAddress(arg), client, logger, closeFn, nil
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, token, backend, logger, closeFn, err := inspectTarget(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	meta, err := abis.FetchTokenMeta(ctx, backend, token, logger)
	if err != nil {
		return fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	return printJSON(cmd.OutOrStdout(), meta)
}

func runPool(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, pool, backend, logger, closeFn, err := inspectTarget(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	block, err := parseBlock(cfg.Block)
	if err != nil {
		return err
	}
	meta, err := abis.FetchPoolMeta(ctx, backend, pool, abis.NewTokenCache(), logger)
	if err != nil {
		return fmt.Errorf("pool %s: %w", pool.Hex(), err)
	}
	slot, err := abis.FetchSlot0(ctx, backend, pool, block)
	if err != nil {
		logger.Warn("slot0 call failed", zap.String("pool", pool.Hex()), zap.Error(err))
	}
	meta.Slot0 = slot
	return printJSON(cmd.OutOrStdout(), meta)
}
