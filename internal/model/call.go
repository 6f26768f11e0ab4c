package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallMsg is a read-only call or the payload of a transaction.
type CallMsg struct {
	From     common.Address
	To       *common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// TxOptions carries the sender and optional overrides for a transaction.
// Zero values leave the choice to the node.
type TxOptions struct {
	From     common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
}

// CallOpts tunes a read-only call. A nil BlockNumber means the latest block.
type CallOpts struct {
	From        common.Address
	BlockNumber *big.Int
}

// LogQuery selects logs by inclusive block range, emitting address and
// per-position topic alternatives. An empty position matches anything.
type LogQuery struct {
	FromBlock uint64
	ToBlock   uint64
	Addresses []common.Address
	Topics    [][]common.Hash
}
