package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogRecord is a log entry as returned by the node.
type LogRecord struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber uint64         `json:"block_number"`
	BlockHash   common.Hash    `json:"block_hash"`
	TxHash      common.Hash    `json:"tx_hash"`
	TxIndex     uint64         `json:"tx_index"`
	LogIndex    uint64         `json:"log_index"`
	Removed     bool           `json:"removed"`
}

// Key identifies a log within the chain for duplicate suppression.
func (lr LogRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", lr.BlockNumber, lr.TxHash.Hex(), lr.LogIndex)
}

// Topic0 returns the first topic, or the zero hash for a log without topics.
func (lr LogRecord) Topic0() common.Hash {
	if len(lr.Topics) == 0 {
		return common.Hash{}
	}
	return lr.Topics[0]
}

// NewLogRecord converts a go-ethereum log.
func NewLogRecord(log types.Log) LogRecord {
	topics := make([]common.Hash, len(log.Topics))
	copy(topics, log.Topics)
	return LogRecord{
		Address:     log.Address,
		Topics:      topics,
		Data:        common.CopyBytes(log.Data),
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Removed:     log.Removed,
	}
}
