package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractbind/internal/config"
	"contractbind/internal/contract"
	"contractbind/internal/indexer"
	"contractbind/internal/metrics"
	"contractbind/internal/storage"
	"contractbind/internal/storage/kafka"
	"contractbind/internal/storage/postgres"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Backfill decoded contract events over a block range",
		RunE:  runLogs,
	}

	flags := cmd.Flags()
	addCommonFlags(flags)
	flags.StringSlice("address", nil, "contract addresses (comma-separated)")
	flags.StringSlice("event", nil, "event names, empty means all events in the ABI")
	flags.String("filter", "", "indexed argument filter for a single event (comma-separated name=value)")
	flags.Uint64("from", 0, "start block (inclusive)")
	flags.Uint64("to", 0, "end block (inclusive), 0 means latest")
	flags.Uint64("batch-size", 2000, "blocks per batch")
	flags.String("out", "./data/events.jsonl", "output JSONL path, empty disables")
	flags.String("errors", "./data/decode_errors.jsonl", "decode errors JSONL path, empty disables")
	flags.String("pg-dsn", "", "Postgres DSN for event storage")
	flags.StringSlice("kafka-brokers", nil, "Kafka brokers (comma-separated)")
	flags.String("kafka-topic", "contract_events", "Kafka topic")
	flags.String("checkpoint", "./data/checkpoint.json", "checkpoint file (file and bolt kinds)")
	flags.String("checkpoint-kind", "file", "checkpoint store: file, bolt, postgres or none")
	flags.String("checkpoint-name", "logs", "checkpoint key (bolt and postgres kinds)")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Bool("keep-raw", false, "store raw topics and data next to decoded args")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLogs(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Common)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	iface, err := loadInterface(cfg.ABI)
	if err != nil {
		return err
	}
	filter, err := parseFilter(iface, cfg.Events, cfg.Filter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	var sinks storage.Multi
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}

	var pg *postgres.Store
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, pg)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		sinks = append(sinks, producer)
	}
	if len(sinks) == 0 {
		return fmt.Errorf("no output configured: set out, pg-dsn or kafka-brokers")
	}

	opts := []indexer.Option{}
	if cfg.Errors != "" {
		opts = append(opts, indexer.WithErrorSink(storage.NewJsonlStorage(cfg.Errors)))
	}

	switch cfg.CheckpointKind {
	case "file":
		opts = append(opts, indexer.WithCheckpoint(indexer.NewFileCheckpoint(cfg.Checkpoint)))
	case "bolt":
		cp, err := indexer.OpenBoltCheckpoint(cfg.Checkpoint, cfg.CheckpointName)
		if err != nil {
			return err
		}
		defer cp.Close()
		opts = append(opts, indexer.WithCheckpoint(cp))
	case "postgres":
		opts = append(opts, indexer.WithCheckpoint(&indexer.StateCheckpoint{Store: pg, Name: cfg.CheckpointName}))
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, indexer.WithMetrics(metrics.NewBackfill(reg)))
		serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Addresses:    addresses,
		Events:       cfg.Events,
		Filter:       filter,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		KeepRaw:      cfg.KeepRaw,
	}, chainClient, iface, sinks, logger, opts...)

	logger.Info("logs start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Strings("events", cfg.Events),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Int("sinks", len(sinks)),
		zap.String("checkpoint_kind", cfg.CheckpointKind),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}

	stats := runner.Stats()
	logger.Info("logs complete",
		zap.Int("batches", stats.Batches),
		zap.Int("stored", stats.Stored),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Uint64("last_block", stats.LastBlock),
	)
	return nil
}

// parseFilter builds the index filter for the single selected event.
func parseFilter(iface *contract.Interface, events []string, raw map[string]string) (contract.IndexFilter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(events) != 1 {
		return nil, fmt.Errorf("filter needs exactly one event, got %d", len(events))
	}
	ev, err := iface.Event(events[0])
	if err != nil {
		return nil, err
	}
	return indexer.ParseIndexFilter(ev, raw)
}
