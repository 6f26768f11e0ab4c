package awaiter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"contractbind/internal/model"
)

var (
	ErrInvalidConfiguration = errors.New("invalid awaiter configuration")
	ErrTransactionTimeout   = errors.New("transaction timeout")
	ErrTransactionReverted  = errors.New("transaction reverted")
)

// RevertedError reports a mined transaction whose receipt status is failed.
// Reason is set when the revert payload could be recovered and decoded;
// Data holds the raw payload when it was recovered but not decodable.
type RevertedError struct {
	TxHash  common.Hash
	Receipt *model.Receipt
	Reason  string
	Data    []byte
}

func (e *RevertedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transaction %s reverted: %s", e.TxHash.Hex(), e.Reason)
	}
	return fmt.Sprintf("transaction %s reverted", e.TxHash.Hex())
}

func (e *RevertedError) Is(target error) bool {
	return target == ErrTransactionReverted
}
