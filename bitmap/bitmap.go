// Package bitmap tracks the free/occupied state of every block on the
// virtual disk. It is a pure in-memory structure; the block store is
// responsible for persisting it.
package bitmap

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
)

// Bitmap holds one bit per block index below a fixed capacity.
// true means the block is free.
type Bitmap struct {
	bits []bool
}

// New returns a bitmap of n blocks, all free.
func New(n uint64) *Bitmap {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = true
	}
	return &Bitmap{bits: bits}
}

func (bm *Bitmap) Size() uint64 {
	return uint64(len(bm.bits))
}

func (bm *Bitmap) check(bn common.Bnum) error {
	if bn >= uint64(len(bm.bits)) {
		return fmt.Errorf("block %d of %d: %w", bn, len(bm.bits), fserr.ErrOutOfRange)
	}
	return nil
}

// IsFree reports whether block bn is free.
func (bm *Bitmap) IsFree(bn common.Bnum) (bool, error) {
	if err := bm.check(bn); err != nil {
		return false, err
	}
	return bm.bits[bn], nil
}

// SetOccupied marks block bn occupied.
func (bm *Bitmap) SetOccupied(bn common.Bnum) error {
	if err := bm.check(bn); err != nil {
		return err
	}
	bm.bits[bn] = false
	return nil
}

// SetFree marks block bn free.
func (bm *Bitmap) SetFree(bn common.Bnum) error {
	if err := bm.check(bn); err != nil {
		return err
	}
	bm.bits[bn] = true
	return nil
}

// FirstFree scans from index 0 for the first free block. First-fit is
// part of the allocator's contract; no locality heuristic.
func (bm *Bitmap) FirstFree() (common.Bnum, bool) {
	for i, free := range bm.bits {
		if free {
			return uint64(i), true
		}
	}
	return 0, false
}

// CountFree returns the number of free blocks.
func (bm *Bitmap) CountFree() uint64 {
	var n uint64
	for _, free := range bm.bits {
		if free {
			n++
		}
	}
	return n
}

// Snapshot renders the bitmap as one byte per block, 1 = occupied,
// 0 = free. This is the on-disk orientation of the snapshot format,
// the inverse of the in-memory convention.
func (bm *Bitmap) Snapshot() []byte {
	b := make([]byte, len(bm.bits))
	for i, free := range bm.bits {
		if !free {
			b[i] = 1
		}
	}
	return b
}

// Restore rebuilds a bitmap from a Snapshot byte slice.
func Restore(b []byte) *Bitmap {
	bm := New(uint64(len(b)))
	for i, occ := range b {
		if occ == 1 {
			bm.bits[i] = false
		}
	}
	return bm
}
