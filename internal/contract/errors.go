package contract

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrSelectorMismatch = errors.New("selector mismatch")
	ErrEventMismatch    = errors.New("event mismatch")
	ErrUnknownMethod    = errors.New("unknown method")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownArgument  = errors.New("unknown argument")
)

// RevertError is returned by a read-only call that the contract reverted.
// Reason is set when the payload uses the standard Error(string) or
// Panic(uint256) encoding; Raw always holds the payload.
type RevertError struct {
	Reason string
	Raw    []byte
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "contract reverted: " + e.Reason
	}
	if len(e.Raw) == 0 {
		return "contract reverted"
	}
	return fmt.Sprintf("contract reverted: %s", hexutil.Encode(e.Raw))
}
