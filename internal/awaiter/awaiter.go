package awaiter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"contractbind/internal/codec"
	"contractbind/internal/model"
)

// ReceiptSource is the part of the node endpoint the awaiter needs.
// ExecuteReadOnly is used to replay a reverted transaction and recover its
// reason.
type ReceiptSource interface {
	GetReceipt(ctx context.Context, txHash common.Hash) (*model.Receipt, error)
	ExecuteReadOnly(ctx context.Context, msg model.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Awaiter polls for transaction receipts.
type Awaiter struct {
	source ReceiptSource
	logger *zap.Logger
}

func New(source ReceiptSource, logger *zap.Logger) *Awaiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Awaiter{source: source, logger: logger}
}

// Pending is a submitted transaction that has not been awaited yet. Call is
// the message that produced it; it is replayed to recover a revert reason.
type Pending struct {
	TxHash common.Hash
	Call   model.CallMsg

	awaiter *Awaiter
}

// NewPending binds a transaction hash to an awaiter.
func (a *Awaiter) NewPending(txHash common.Hash, call model.CallMsg) *Pending {
	return &Pending{TxHash: txHash, Call: call, awaiter: a}
}

// Await blocks until the transaction is mined, reverts or the timeout
// elapses.
func (p *Pending) Await(ctx context.Context, opts Options) (*model.Receipt, error) {
	if p.awaiter == nil {
		return nil, fmt.Errorf("%w: pending transaction has no awaiter", ErrInvalidConfiguration)
	}
	return p.awaiter.Await(ctx, p, opts)
}

// Await polls GetReceipt immediately and then every PollingInterval.
// Endpoint errors end the wait; nothing is retried. Timeout bounds the
// whole wait, including a receipt request that does not return.
func (a *Awaiter) Await(ctx context.Context, p *Pending, opts Options) (*model.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	ticker := time.NewTicker(opts.PollingInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.source.GetReceipt(pollCtx, p.TxHash)
		if err != nil {
			if expired(ctx, pollCtx) {
				return nil, timeoutError(p, opts)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("get receipt %s: %w", p.TxHash.Hex(), err)
		}
		if receipt != nil {
			if receipt.Succeeded() {
				a.logger.Debug("transaction mined", zap.String("tx", p.TxHash.Hex()), zap.Uint64("block", receipt.BlockNumber))
				return receipt, nil
			}
			return nil, a.reverted(pollCtx, p, receipt)
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, timeoutError(p, opts)
		case <-ticker.C:
		}
	}
}

// expired reports whether the wait deadline, not the caller, ended pollCtx.
func expired(ctx, pollCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded)
}

func timeoutError(p *Pending, opts Options) error {
	return fmt.Errorf("%w: %s not mined after %s", ErrTransactionTimeout, p.TxHash.Hex(), opts.Timeout)
}

// reverted replays the call against the parent block to recover the
// revert payload. Failure to replay still yields a RevertedError.
func (a *Awaiter) reverted(ctx context.Context, p *Pending, receipt *model.Receipt) error {
	out := &RevertedError{TxHash: p.TxHash, Receipt: receipt}
	if p.Call.To == nil {
		return out
	}

	var block *big.Int
	if receipt.BlockNumber > 0 {
		block = new(big.Int).SetUint64(receipt.BlockNumber - 1)
	}
	_, err := a.source.ExecuteReadOnly(ctx, p.Call, block)
	var payload *model.RevertPayload
	if !errors.As(err, &payload) {
		a.logger.Debug("revert reason unavailable", zap.String("tx", p.TxHash.Hex()), zap.Error(err))
		return out
	}
	if reason, ok := codec.UnpackRevert(payload.Data); ok {
		out.Reason = reason
	} else {
		out.Data = payload.Data
		out.Reason = payload.Message
	}
	return out
}
