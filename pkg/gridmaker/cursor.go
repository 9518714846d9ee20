package gridmaker

// BatchCursor is the batch slot a subcube forward pass writes. A cursor at
// index 0 starts a new batch and clears the buffer first.
//
// Cursors are values: each worker owns its own and threads it through
// successive SetAtoms calls.
type BatchCursor struct {
	index int
	size  int
}

// NewBatchCursor returns a cursor at the start of a batch of the given size.
// Sizes below one are treated as one.
func NewBatchCursor(size int) BatchCursor {
	if size < 1 {
		size = 1
	}
	return BatchCursor{size: size}
}

// Index is the slot the next forward pass writes.
func (c BatchCursor) Index() int { return c.index }

// Size is the batch length.
func (c BatchCursor) Size() int {
	if c.size < 1 {
		return 1
	}
	return c.size
}

// StartsBatch reports whether the next forward pass begins a new batch.
func (c BatchCursor) StartsBatch() bool { return c.index == 0 }

// Next advances to the following slot, wrapping to 0 after the last one.
func (c BatchCursor) Next() BatchCursor {
	return BatchCursor{index: (c.index + 1) % c.Size(), size: c.Size()}
}
