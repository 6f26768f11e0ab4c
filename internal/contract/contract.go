package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"contractbind/internal/awaiter"
	"contractbind/internal/codec"
	"contractbind/internal/model"
)

// Backend is the node endpoint a contract handle talks to. One backend is
// shared by many handles; implementations must be safe for concurrent use.
type Backend interface {
	ExecuteReadOnly(ctx context.Context, msg model.CallMsg, blockNumber *big.Int) ([]byte, error)
	SubmitTransaction(ctx context.Context, msg model.CallMsg, opts model.TxOptions) (common.Hash, error)
	GetReceipt(ctx context.Context, txHash common.Hash) (*model.Receipt, error)
	GetLogs(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error)
}

// Contract binds an address and an interface to a backend.
type Contract struct {
	address common.Address
	abi     *Interface
	backend Backend
	awaiter *awaiter.Awaiter
	logger  *zap.Logger
}

// New builds a contract handle.
func New(address common.Address, iface *Interface, backend Backend, logger *zap.Logger) *Contract {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contract{
		address: address,
		abi:     iface,
		backend: backend,
		awaiter: awaiter.New(backend, logger),
		logger:  logger,
	}
}

func (c *Contract) Address() common.Address { return c.address }

func (c *Contract) Interface() *Interface { return c.abi }

// Method validates and encodes a call immediately. Argument errors surface
// here rather than when the call is executed.
func (c *Contract) Method(name string, args ...any) (*BoundCall, error) {
	m, err := c.abi.Method(name)
	if err != nil {
		return nil, err
	}
	data, err := m.EncodeCall(args...)
	if err != nil {
		return nil, err
	}
	return &BoundCall{contract: c, method: m, data: data}, nil
}

// DecodeTransactionData decodes calldata for the named method.
func (c *Contract) DecodeTransactionData(name string, data []byte) ([]any, error) {
	m, err := c.abi.Method(name)
	if err != nil {
		return nil, err
	}
	return m.DecodeCall(data)
}

// DecodeReturnData decodes output bytes for the named method.
func (c *Contract) DecodeReturnData(name string, data []byte) ([]any, error) {
	m, err := c.abi.Method(name)
	if err != nil {
		return nil, err
	}
	return m.DecodeReturn(data)
}

// GetLogs fetches and decodes the event's logs emitted by this contract in
// the given range, keeping only those that match the filter exactly.
func (c *Contract) GetLogs(ctx context.Context, eventName string, blocks model.BlockRange, filter IndexFilter) ([]*model.DecodedEvent, error) {
	event, err := c.abi.Event(eventName)
	if err != nil {
		return nil, err
	}
	if err := blocks.Validate(); err != nil {
		return nil, err
	}
	topics, err := event.FilterTopics(filter)
	if err != nil {
		return nil, err
	}

	logs, err := c.backend.GetLogs(ctx, model.LogQuery{
		FromBlock: blocks.From,
		ToBlock:   blocks.To,
		Addresses: []common.Address{c.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}

	out := make([]*model.DecodedEvent, 0, len(logs))
	for _, log := range logs {
		if log.Address != c.address || log.Removed {
			continue
		}
		ev, err := event.DecodeLog(log)
		if err != nil {
			return nil, err
		}
		ok, err := event.Matches(ev, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ev)
		}
	}
	c.logger.Debug("get logs", zap.String("event", event.Signature), zap.Uint64("from", blocks.From), zap.Uint64("to", blocks.To), zap.Int("matched", len(out)))
	return out, nil
}

// BoundCall is a method with encoded arguments, ready to call or send.
type BoundCall struct {
	contract *Contract
	method   *Method
	data     []byte
}

func (b *BoundCall) Method() *Method { return b.method }

func (b *BoundCall) Selector() codec.Selector { return b.method.Selector }

// EncodedData returns selector || encoded arguments.
func (b *BoundCall) EncodedData() []byte {
	return common.CopyBytes(b.data)
}

func (b *BoundCall) callMsg(from common.Address) model.CallMsg {
	to := b.contract.address
	return model.CallMsg{From: from, To: &to, Data: b.EncodedData()}
}

// Call executes the method read-only and decodes its return values. A
// revert becomes a *RevertError.
func (b *BoundCall) Call(ctx context.Context, opts model.CallOpts) ([]any, error) {
	out, err := b.contract.backend.ExecuteReadOnly(ctx, b.callMsg(opts.From), opts.BlockNumber)
	if err != nil {
		var payload *model.RevertPayload
		if errors.As(err, &payload) {
			return nil, newRevertError(payload)
		}
		return nil, fmt.Errorf("call %s: %w", b.method.Signature, err)
	}
	return b.method.DecodeReturn(out)
}

// Send submits the method as a transaction without waiting for it.
func (b *BoundCall) Send(ctx context.Context, opts model.TxOptions) (*awaiter.Pending, error) {
	msg := b.callMsg(opts.From)
	msg.Gas = opts.Gas
	msg.GasPrice = opts.GasPrice
	msg.Value = opts.Value

	hash, err := b.contract.backend.SubmitTransaction(ctx, msg, opts)
	if err != nil {
		var payload *model.RevertPayload
		if errors.As(err, &payload) {
			return nil, newRevertError(payload)
		}
		return nil, fmt.Errorf("send %s: %w", b.method.Signature, err)
	}
	b.contract.logger.Debug("transaction submitted", zap.String("method", b.method.Signature), zap.String("tx", hash.Hex()))
	return b.contract.awaiter.NewPending(hash, msg), nil
}

// SendAndWait submits the transaction and awaits its receipt.
func (b *BoundCall) SendAndWait(ctx context.Context, opts model.TxOptions, wait awaiter.Options) (*model.Receipt, error) {
	pending, err := b.Send(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pending.Await(ctx, wait)
}

func newRevertError(payload *model.RevertPayload) *RevertError {
	out := &RevertError{Raw: common.CopyBytes(payload.Data)}
	if reason, ok := codec.UnpackRevert(payload.Data); ok {
		out.Reason = reason
	} else if len(payload.Data) == 0 {
		out.Reason = payload.Message
	}
	return out
}
