package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"contractbind/internal/contract"
	"contractbind/internal/metrics"
	"contractbind/internal/model"
	"contractbind/internal/storage"
)

// Source is the node surface the backfill reads from.
type Source interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeadBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	GetLogs(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error)
}

// RunConfig holds runtime settings for a backfill.
type RunConfig struct {
	FromBlock uint64
	// ToBlock is inclusive; zero means the head at start-up.
	ToBlock   uint64
	Addresses []common.Address
	// Events names the events to collect. Empty means every non-anonymous
	// event of the interface.
	Events []string
	// Filter constrains indexed arguments and needs exactly one event.
	Filter       contract.IndexFilter
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	KeepRaw      bool
}

// Stats summarizes a run.
type Stats struct {
	Batches   int
	Stored    int
	Failed    int
	Skipped   int
	LastBlock uint64
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithCheckpoint resumes from and saves progress to store.
func WithCheckpoint(store CheckpointStore) Option {
	return func(r *Runner) { r.checkpoint = store }
}

// WithErrorSink records logs that could not be decoded.
func WithErrorSink(sink storage.ErrorSink) Option {
	return func(r *Runner) { r.errors = sink }
}

// WithMetrics reports batch progress.
func WithMetrics(m *metrics.Backfill) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner reads a contract's logs in block batches, decodes them and writes
// event records to storage.
type Runner struct {
	cfg        RunConfig
	source     Source
	iface      *contract.Interface
	storage    storage.Storage
	errors     storage.ErrorSink
	checkpoint CheckpointStore
	metrics    *metrics.Backfill
	logger     *zap.Logger
	seen       map[string]struct{}
	now        func() time.Time

	filterEvent *contract.Event
	stats       Stats
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source Source, iface *contract.Interface, sink storage.Storage, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:     cfg,
		source:  source,
		iface:   iface,
		storage: sink,
		logger:  logger,
		seen:    make(map[string]struct{}),
		now:     defaultNow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns counters for the batches completed so far.
func (r *Runner) Stats() Stats {
	return r.stats
}

// Run executes the backfill loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.iface == nil {
		return fmt.Errorf("contract interface is nil")
	}
	if r.cfg.BatchSize == 0 {
		return errZeroBatch
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	topics, err := r.queryTopics()
	if err != nil {
		return err
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.HeadBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	batches, err := NewBatches(model.BlockRange{From: from, To: to}, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for batches.Next() {
		blockRange := batches.Range()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.getLogsWithRetry(ctx, model.LogQuery{
			FromBlock: blockRange.From,
			ToBlock:   blockRange.To,
			Addresses: r.cfg.Addresses,
			Topics:    topics,
		})
		if err != nil {
			return fmt.Errorf("get logs: %w", err)
		}

		batch, err := r.decodeLogs(ctx, chainIDValue, logs)
		if err != nil {
			return err
		}

		if err := r.storage.PutEventBatch(ctx, batch.records); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		if r.errors != nil && len(batch.failures) > 0 {
			if err := r.errors.PutDecodeErrors(ctx, batch.failures); err != nil {
				return fmt.Errorf("store decode errors: %w", err)
			}
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
				return err
			}
		}

		r.stats.Batches++
		r.stats.Stored += len(batch.records)
		r.stats.Failed += len(batch.failures)
		r.stats.Skipped += batch.skipped
		r.stats.LastBlock = blockRange.To
		r.metrics.BatchDone(len(batch.records), blockRange.To)

		r.logger.Info("batch complete",
			zap.Int("events", len(batch.records)),
			zap.Int("failed", len(batch.failures)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return nil
}

// queryTopics resolves the configured events into a topic filter. A single
// event may carry an index filter; several events share position 0.
func (r *Runner) queryTopics() ([][]common.Hash, error) {
	names := r.cfg.Events
	if len(names) == 0 {
		names = r.iface.EventNames()
	}

	var events []*contract.Event
	for _, name := range names {
		ev, err := r.iface.Event(name)
		if err != nil {
			return nil, err
		}
		if ev.Anonymous {
			if len(r.cfg.Events) > 0 {
				return nil, fmt.Errorf("event %s is anonymous and cannot be selected by topic", name)
			}
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to collect")
	}

	if len(r.cfg.Filter) > 0 {
		if len(events) != 1 {
			return nil, fmt.Errorf("an index filter needs exactly one event, got %d", len(events))
		}
		r.filterEvent = events[0]
		return events[0].FilterTopics(r.cfg.Filter)
	}

	ids := make([]common.Hash, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return [][]common.Hash{ids}, nil
}

func (r *Runner) getLogsWithRetry(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error) {
	var logs []model.LogRecord
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.GetLogs(ctx, query)
		if err != nil {
			r.logger.Warn("get logs failed", zap.Error(err), zap.Uint64("from", query.FromBlock), zap.Uint64("to", query.ToBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}
