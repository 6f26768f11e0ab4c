package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"contractbind/internal/model"
)

// Options tunes a Client. A zero RateLimit disables client side throttling.
type Options struct {
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
}

// Client wraps go-ethereum RPC and implements the node endpoint used by
// contract handles, subscriptions, the awaiter and the backfill runner. It
// is safe for concurrent use.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   *rate.Limiter
	logger    *zap.Logger

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient dials the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", model.ErrEndpointUnavailable, rpcURL, err)
	}
	return newClient(rpcClient, opts), nil
}

func newClient(rpcClient *rpc.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		limiter:   limiter,
		logger:    logger,
		tsCache:   make(map[uint64]uint64),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return id, nil
}

// HeadBlockNumber returns the latest block number.
func (c *Client) HeadBlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	n, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, translateError(err)
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// ExecuteReadOnly performs an eth_call. A nil blockNumber targets the latest
// block. Reverts come back as *model.RevertPayload.
func (c *Client) ExecuteReadOnly(ctx context.Context, msg model.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		From:     msg.From,
		To:       msg.To,
		Data:     msg.Data,
		Value:    msg.Value,
		Gas:      msg.Gas,
		GasPrice: msg.GasPrice,
	}, blockNumber)
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// SubmitTransaction sends a transaction signed by the node's own account
// through eth_sendTransaction.
func (c *Client) SubmitTransaction(ctx context.Context, msg model.CallMsg, opts model.TxOptions) (common.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", sendArgs(msg, opts)); err != nil {
		return common.Hash{}, translateError(err)
	}
	c.logger.Debug("eth_sendTransaction", zap.String("tx", hash.Hex()), zap.String("from", opts.From.Hex()))
	return hash, nil
}

func sendArgs(msg model.CallMsg, opts model.TxOptions) map[string]any {
	args := map[string]any{
		"from":  opts.From,
		"input": hexutil.Bytes(msg.Data),
	}
	if msg.To != nil {
		args["to"] = msg.To
	}
	if opts.Gas > 0 {
		args["gas"] = hexutil.Uint64(opts.Gas)
	}
	if opts.GasPrice != nil {
		args["gasPrice"] = (*hexutil.Big)(opts.GasPrice)
	}
	if opts.Value != nil {
		args["value"] = (*hexutil.Big)(opts.Value)
	}
	return args
}

// GetReceipt returns the receipt or nil when the transaction is unknown or
// not yet mined.
func (c *Client) GetReceipt(ctx context.Context, txHash common.Hash) (*model.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return model.NewReceipt(receipt), nil
}

// GetLogs returns logs matching the query.
func (c *Client) GetLogs(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.ethClient.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(query.FromBlock),
		ToBlock:   new(big.Int).SetUint64(query.ToBlock),
		Addresses: query.Addresses,
		Topics:    query.Topics,
	})
	if err != nil {
		return nil, translateError(err)
	}
	return buildLogRecords(logs), nil
}

func buildLogRecords(logs []types.Log) []model.LogRecord {
	out := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		out = append(out, model.NewLogRecord(log))
	}
	return out
}

// SignMessage asks the node to sign message with one of its accounts.
func (c *Client) SignMessage(ctx context.Context, address common.Address, message []byte) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var sig hexutil.Bytes
	if err := c.rpcClient.CallContext(ctx, &sig, "eth_sign", address, hexutil.Bytes(message)); err != nil {
		return nil, translateError(err)
	}
	return sig, nil
}

// translateError maps JSON-RPC failures onto the error taxonomy: revert
// data becomes *model.RevertPayload, node level errors pass through and
// everything else is an unavailable endpoint.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if payload, ok := revertPayload(dataErr); ok {
			return payload
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if strings.Contains(rpcErr.Error(), "execution reverted") {
			return &model.RevertPayload{Message: rpcErr.Error()}
		}
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrEndpointUnavailable, err)
}

func revertPayload(err rpc.DataError) (*model.RevertPayload, bool) {
	s, ok := err.ErrorData().(string)
	if !ok {
		return nil, false
	}
	data, decodeErr := hexutil.Decode(s)
	if decodeErr != nil {
		return nil, false
	}
	return &model.RevertPayload{Data: data, Message: err.Error()}, true
}
