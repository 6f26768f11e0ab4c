package model

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Validate() error {
	if r.To < r.From {
		return fmt.Errorf("to block %d must be >= from block %d", r.To, r.From)
	}
	return nil
}
