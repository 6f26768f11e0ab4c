package model

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrEndpointUnavailable marks transport level failures talking to the node.
var ErrEndpointUnavailable = errors.New("endpoint unavailable")

// RevertPayload is returned by an endpoint when execution reverted. Data
// holds the raw revert bytes, possibly empty.
type RevertPayload struct {
	Data    []byte
	Message string
}

func (e *RevertPayload) Error() string {
	if len(e.Data) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", hexutil.Encode(e.Data))
}
