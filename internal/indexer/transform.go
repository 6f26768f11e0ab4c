package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contractbind/internal/model"
)

// decodedBatch is one block range after decoding.
type decodedBatch struct {
	records  []model.EventRecord
	failures []model.DecodeError
	skipped  int
}

// decodeLogs turns raw logs into event records. Logs that fail to decode are
// reported as failures and never abort the batch; removed, duplicate and
// filtered-out logs are skipped.
func (r *Runner) decodeLogs(ctx context.Context, chainID uint64, logs []model.LogRecord) (decodedBatch, error) {
	var out decodedBatch
	ingestedAt := r.now().UTC()
	timestamps := make(map[uint64]uint64)

	for _, log := range logs {
		if log.Removed || r.isDuplicate(log) {
			out.skipped++
			continue
		}

		ev, err := r.iface.DecodeLog(log)
		if err != nil {
			r.logger.Warn("decode log failed", zap.Error(err), zap.Uint64("block_number", log.BlockNumber), zap.String("tx_hash", log.TxHash.Hex()), zap.Uint64("log_index", log.LogIndex))
			r.metrics.DecodeFailed()
			out.failures = append(out.failures, model.NewDecodeError(chainID, log, err))
			continue
		}
		if r.filterEvent != nil {
			ok, err := r.filterEvent.Matches(ev, r.cfg.Filter)
			if err != nil {
				return decodedBatch{}, err
			}
			if !ok {
				out.skipped++
				continue
			}
		}

		ts, ok := timestamps[log.BlockNumber]
		if !ok {
			ts, err = r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return decodedBatch{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			timestamps[log.BlockNumber] = ts
		}

		record, err := model.NewEventRecord(chainID, ev, ts, ingestedAt, r.cfg.KeepRaw)
		if err != nil {
			r.metrics.DecodeFailed()
			out.failures = append(out.failures, model.NewDecodeError(chainID, log, err))
			continue
		}
		out.records = append(out.records, record)
	}
	return out, nil
}

func (r *Runner) isDuplicate(log model.LogRecord) bool {
	id := log.Key()
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

func defaultNow() time.Time {
	return time.Now()
}
