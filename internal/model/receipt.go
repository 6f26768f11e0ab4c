package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	ReceiptStatusFailed     = types.ReceiptStatusFailed
	ReceiptStatusSuccessful = types.ReceiptStatusSuccessful
)

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash          common.Hash     `json:"tx_hash"`
	BlockNumber     uint64          `json:"block_number"`
	BlockHash       common.Hash     `json:"block_hash"`
	Status          uint64          `json:"status"`
	GasUsed         uint64          `json:"gas_used"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
	Logs            []LogRecord     `json:"logs"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// NewReceipt converts a go-ethereum receipt.
func NewReceipt(r *types.Receipt) *Receipt {
	out := &Receipt{
		TxHash:    r.TxHash,
		BlockHash: r.BlockHash,
		Status:    r.Status,
		GasUsed:   r.GasUsed,
		Logs:      make([]LogRecord, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.ContractAddress != (common.Address{}) {
		addr := r.ContractAddress
		out.ContractAddress = &addr
	}
	for _, log := range r.Logs {
		if log != nil {
			out.Logs = append(out.Logs, NewLogRecord(*log))
		}
	}
	return out
}
