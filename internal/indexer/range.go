package indexer

import (
	"errors"

	"contractbind/internal/model"
)

var errZeroBatch = errors.New("batch size must be greater than zero")

// Batches walks an inclusive block span in windows of at most size blocks.
// Windows are produced on demand, so a span reaching math.MaxUint64 neither
// allocates per window up front nor wraps around.
type Batches struct {
	next uint64
	last uint64
	size uint64
	done bool
	cur  model.BlockRange
}

func NewBatches(span model.BlockRange, size uint64) (*Batches, error) {
	if size == 0 {
		return nil, errZeroBatch
	}
	if err := span.Validate(); err != nil {
		return nil, err
	}
	return &Batches{next: span.From, last: span.To, size: size}, nil
}

// Next advances to the following window and reports whether there was one.
func (b *Batches) Next() bool {
	if b.done {
		return false
	}
	end := b.last
	if b.last-b.next >= b.size {
		end = b.next + b.size - 1
	}
	b.cur = model.BlockRange{From: b.next, To: end}
	if end == b.last {
		b.done = true
	} else {
		b.next = end + 1
	}
	return true
}

// Range is the window selected by the last call to Next.
func (b *Batches) Range() model.BlockRange {
	return b.cur
}

// SplitRange collects every window of [from, to]. Use Batches for spans
// whose window count is not bounded.
func SplitRange(from, to, batchSize uint64) ([]model.BlockRange, error) {
	it, err := NewBatches(model.BlockRange{From: from, To: to}, batchSize)
	if err != nil {
		return nil, err
	}
	var out []model.BlockRange
	for it.Next() {
		out = append(out, it.Range())
	}
	return out, nil
}
