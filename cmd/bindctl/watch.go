package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractbind/internal/chain"
	"contractbind/internal/config"
	"contractbind/internal/contract"
	"contractbind/internal/metrics"
	"contractbind/internal/model"
	"contractbind/internal/storage"
	"contractbind/internal/storage/kafka"
	"contractbind/internal/subscription"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream decoded contract events as new blocks arrive",
		RunE:  runWatch,
	}

	flags := cmd.Flags()
	addCommonFlags(flags)
	flags.String("address", "", "contract address")
	flags.StringSlice("event", nil, "event names, empty means all events in the ABI")
	flags.String("filter", "", "indexed argument filter for a single event (comma-separated name=value)")
	flags.Duration("poll-interval", 4*time.Second, "head polling interval")
	flags.Int("max-failures", 5, "consecutive failed polls before giving up")
	flags.String("out", "", "append events to this JSONL file instead of stdout")
	flags.StringSlice("kafka-brokers", nil, "Kafka brokers (comma-separated)")
	flags.String("kafka-topic", "contract_events", "Kafka topic")
	flags.Bool("keep-raw", false, "include raw topics and data")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !common.IsHexAddress(cfg.Address) {
		return fmt.Errorf("invalid address: %q", cfg.Address)
	}
	address := common.HexToAddress(cfg.Address)

	logger, err := newLogger(cfg.Common)
	if err != nil {
		return err
	}
	defer logger.Sync()

	iface, err := loadInterface(cfg.ABI)
	if err != nil {
		return err
	}
	events, err := selectEvents(iface, cfg.Events)
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

	id, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	chainID, err := chainIDValue(id)
	if err != nil {
		return err
	}

	var sinks storage.Multi
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
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
		sinks = append(sinks, &writerSink{w: cmd.OutOrStdout()})
	}

	var subMetrics *metrics.Subscriptions
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		subMetrics = metrics.NewSubscriptions(reg)
		serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	manager := subscription.NewManager(chainClient, subscription.Config{
		PollInterval:           cfg.PollInterval,
		MaxConsecutiveFailures: cfg.MaxFailures,
		Logger:                 logger,
		Metrics:                subMetrics,
	})
	defer manager.Close()

	failed := make(chan error, 1)
	forward := &eventForwarder{
		ctx:     ctx,
		chainID: chainID,
		chain:   chainClient,
		sink:    sinks,
		keepRaw: cfg.KeepRaw,
		logger:  logger,
		failed:  failed,
	}
	for _, ev := range events {
		token, err := manager.Subscribe(address, ev, filter, forward.handle)
		if err != nil {
			return err
		}
		logger.Info("subscribed", zap.String("event", ev.Signature), zap.String("token", token))
	}

	select {
	case <-ctx.Done():
		logger.Info("watch stopped")
		return nil
	case err := <-failed:
		return err
	}
}

// selectEvents resolves names, or every non-anonymous event when names is
// empty.
func selectEvents(iface *contract.Interface, names []string) ([]*contract.Event, error) {
	explicit := len(names) > 0
	if !explicit {
		names = iface.EventNames()
	}
	var out []*contract.Event
	for _, name := range names {
		ev, err := iface.Event(name)
		if err != nil {
			return nil, err
		}
		if ev.Anonymous {
			if explicit {
				return nil, fmt.Errorf("%w: %s", subscription.ErrAnonymousEvent, name)
			}
			continue
		}
		out = append(out, ev)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("abi has no events to watch")
	}
	return out, nil
}

// eventForwarder writes delivered events to a sink. It runs on the
// subscription driver goroutine.
type eventForwarder struct {
	ctx     context.Context
	chainID uint64
	chain   *chain.Client
	sink    storage.Storage
	keepRaw bool
	logger  *zap.Logger
	failed  chan<- error
}

func (f *eventForwarder) handle(ev *model.DecodedEvent, err error) {
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionFailed) {
			select {
			case f.failed <- err:
			default:
			}
			return
		}
		f.logger.Warn("subscription error", zap.Error(err))
		return
	}

	ts, err := f.chain.BlockTimestamp(f.ctx, ev.Log.BlockNumber)
	if err != nil {
		f.logger.Warn("block timestamp fetch failed", zap.Uint64("block_number", ev.Log.BlockNumber), zap.Error(err))
	}
	record, err := model.NewEventRecord(f.chainID, ev, ts, time.Now(), f.keepRaw)
	if err != nil {
		f.logger.Warn("build event record failed", zap.Error(err))
		return
	}
	if err := f.sink.PutEventBatch(f.ctx, []model.EventRecord{record}); err != nil {
		f.logger.Error("store event failed", zap.String("key", record.Key()), zap.Error(err))
	}
}

// writerSink prints records as JSON lines.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) PutEventBatch(_ context.Context, events []model.EventRecord) error {
	enc := json.NewEncoder(s.w)
	for _, record := range events {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func chainIDValue(id *big.Int) (uint64, error) {
	if id == nil || id.Sign() < 0 || !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}
