package abis

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"contractbind/internal/contract"
	"contractbind/internal/model"
)

// TokenMeta is the descriptive data of an ERC-20 token.
type TokenMeta struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
}

// PoolMeta is the immutable configuration of a Uniswap V3 pool.
type PoolMeta struct {
	Address     string     `json:"address"`
	Token0      TokenMeta  `json:"token0"`
	Token1      TokenMeta  `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tickSpacing"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Tick         int32  `json:"tick"`
}

// TokenCache caches token metadata by address.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenMeta
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]TokenMeta)}
}

func (c *TokenCache) Get(address common.Address) (TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenCache) Set(address common.Address, meta TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchTokenMeta reads decimals, symbol and name. Decimals is required;
// symbol and name fall back to the bytes32 form and are left empty when
// neither form answers.
func FetchTokenMeta(ctx context.Context, backend contract.Backend, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := TokenMeta{Address: token.Hex()}
	stringABI, err := Lookup(ERC20)
	if err != nil {
		return meta, err
	}
	bytes32ABI, err := Lookup(ERC20Bytes32)
	if err != nil {
		return meta, err
	}
	standard := contract.New(token, stringABI, backend, logger)
	legacy := contract.New(token, bytes32ABI, backend, logger)

	values, err := call(ctx, standard, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asInt(values[0], 0, 255)
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = uint8(decimals)

	meta.Symbol = textField(ctx, standard, legacy, "symbol", logger)
	meta.Name = textField(ctx, standard, legacy, "name", logger)
	return meta, nil
}

func textField(ctx context.Context, standard, legacy *contract.Contract, method string, logger *zap.Logger) string {
	values, err := call(ctx, standard, method)
	if err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err = call(ctx, legacy, method)
	if err == nil {
		if raw, ok := values[0].([]byte); ok {
			return string(bytes.TrimRight(raw, "\x00"))
		}
	}
	logger.Debug("token text call failed",
		zap.String("token", standard.Address().Hex()),
		zap.String("method", method),
		zap.Error(err),
	)
	return ""
}

// FetchPoolMeta reads the pool's tokens, fee and tick spacing. Token metadata
// comes from cache when present; a failed token lookup is logged and cached
// as the bare address.
func FetchPoolMeta(ctx context.Context, backend contract.Backend, pool common.Address, tokens *TokenCache, logger *zap.Logger) (PoolMeta, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := PoolMeta{Address: pool.Hex()}
	iface, err := Lookup(UniswapV3Pool)
	if err != nil {
		return meta, err
	}
	c := contract.New(pool, iface, backend, logger)

	var addrs [2]common.Address
	for i, method := range []string{"token0", "token1"} {
		values, err := call(ctx, c, method)
		if err != nil {
			return meta, err
		}
		addr, ok := values[0].(common.Address)
		if !ok {
			return meta, fmt.Errorf("%s: unexpected %T", method, values[0])
		}
		addrs[i] = addr
	}

	values, err := call(ctx, c, "fee")
	if err != nil {
		return meta, err
	}
	fee, err := asInt(values[0], 0, 1<<24-1)
	if err != nil {
		return meta, fmt.Errorf("fee: %w", err)
	}
	meta.Fee = uint32(fee)

	values, err = call(ctx, c, "tickSpacing")
	if err != nil {
		return meta, err
	}
	spacing, err := asInt(values[0], -1<<23, 1<<23-1)
	if err != nil {
		return meta, fmt.Errorf("tick spacing: %w", err)
	}
	meta.TickSpacing = int32(spacing)

	if tokens == nil {
		tokens = NewTokenCache()
	}
	meta.Token0 = cachedToken(ctx, backend, addrs[0], tokens, logger)
	meta.Token1 = cachedToken(ctx, backend, addrs[1], tokens, logger)
	return meta, nil
}

// FetchSlot0 reads the pool price and tick, at the given block when not nil.
func FetchSlot0(ctx context.Context, backend contract.Backend, pool common.Address, block *big.Int) (*PoolSlot0, error) {
	iface, err := Lookup(UniswapV3Pool)
	if err != nil {
		return nil, err
	}
	bound, err := contract.New(pool, iface, backend, nil).Method("slot0")
	if err != nil {
		return nil, err
	}
	values, err := bound.Call(ctx, model.CallOpts{BlockNumber: block})
	if err != nil {
		return nil, err
	}
	sqrt, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0 price: unexpected %T", values[0])
	}
	tick, err := asInt(values[1], -1<<23, 1<<23-1)
	if err != nil {
		return nil, fmt.Errorf("slot0 tick: %w", err)
	}
	return &PoolSlot0{SqrtPriceX96: sqrt.String(), Tick: int32(tick)}, nil
}

func cachedToken(ctx context.Context, backend contract.Backend, token common.Address, cache *TokenCache, logger *zap.Logger) TokenMeta {
	if meta, ok := cache.Get(token); ok {
		return meta
	}
	meta, err := FetchTokenMeta(ctx, backend, token, logger)
	if err != nil {
		logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	cache.Set(token, meta)
	return meta
}

func call(ctx context.Context, c *contract.Contract, method string) ([]any, error) {
	bound, err := c.Method(method)
	if err != nil {
		return nil, err
	}
	values, err := bound.Call(ctx, model.CallOpts{})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func asInt(value any, min, max int64) (int64, error) {
	n, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected %T", value)
	}
	if !n.IsInt64() || n.Int64() < min || n.Int64() > max {
		return 0, fmt.Errorf("%s out of range", n)
	}
	return n.Int64(), nil
}
