// Package store implements the block store: a bitmap-backed allocator
// over a flat disk image of fixed-size blocks. All content I/O is
// whole-block; callers split larger payloads themselves.
package store

import (
	"fmt"
	"time"

	"github.com/goose-lang/std"
	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-blockfs/bitmap"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
	"github.com/mit-pdos/go-blockfs/stats"
)

const (
	allocOp int = iota
	readOp
	writeOp
	deleteOp
	numOps
)

var opNames = []string{"alloc", "read", "write", "delete"}

// BlockStore owns the disk image and the allocation bitmap. The disk
// handle is held for the store's lifetime; Flush is the explicit
// durability point.
type BlockStore struct {
	d    disk.Disk
	bm   *bitmap.Bitmap
	nblk uint64
	ops  [numOps]stats.Op
}

// MkBlockStore wraps an already-open disk. Every block starts free.
func MkBlockStore(d disk.Disk) *BlockStore {
	return &BlockStore{
		d:    d,
		bm:   bitmap.New(d.Size()),
		nblk: d.Size(),
	}
}

// Open opens (or creates, zero-filled) the disk image at path with
// nblk blocks.
func Open(path string, nblk uint64) (*BlockStore, error) {
	util.DPrintf(1, "Open: file disk %s with %d blocks\n", path, nblk)
	d, err := disk.NewFileDisk(path, nblk)
	if err != nil {
		return nil, fmt.Errorf("open disk image %s: %w", path, err)
	}
	return MkBlockStore(d), nil
}

func (bs *BlockStore) NumBlocks() uint64 {
	return bs.nblk
}

func (bs *BlockStore) FreeBlocks() uint64 {
	return bs.bm.CountFree()
}

// AllocBlock marks the first free block occupied and returns its
// index. The block's content is whatever the image holds; it is not
// readable until written.
func (bs *BlockStore) AllocBlock() (common.Bnum, error) {
	defer bs.ops[allocOp].Record(time.Now())
	bn, ok := bs.bm.FirstFree()
	if !ok {
		return 0, fserr.ErrNoFreeBlocks
	}
	if err := bs.bm.SetOccupied(bn); err != nil {
		return 0, err
	}
	util.DPrintf(5, "AllocBlock: %d\n", bn)
	return bn, nil
}

// WriteBlock writes data into block bn, zero-padding to the full block
// size, and marks the block occupied. Writing a free block implicitly
// allocates it.
func (bs *BlockStore) WriteBlock(bn common.Bnum, data []byte) error {
	defer bs.ops[writeOp].Record(time.Now())
	if uint64(len(data)) > common.BlockSize {
		return fmt.Errorf("%d bytes into block %d: %w", len(data), bn, fserr.ErrPayloadTooLarge)
	}
	if bn >= bs.nblk {
		return fmt.Errorf("block %d of %d: %w", bn, bs.nblk, fserr.ErrOutOfRange)
	}
	blk := make(disk.Block, common.BlockSize)
	copy(blk, data)
	bs.d.Write(bn, blk)
	util.DPrintf(5, "WriteBlock: %d (%d bytes)\n", bn, len(data))
	return bs.bm.SetOccupied(bn)
}

// ReadBlock returns block bn's content with trailing zero bytes
// trimmed. A payload that itself ends in zero bytes comes back short;
// the namespace layer compensates using the logical file size.
func (bs *BlockStore) ReadBlock(bn common.Bnum) ([]byte, error) {
	defer bs.ops[readOp].Record(time.Now())
	free, err := bs.bm.IsFree(bn)
	if err != nil {
		return nil, err
	}
	if free {
		return nil, fmt.Errorf("block %d: %w", bn, fserr.ErrBlockFree)
	}
	blk := bs.d.Read(bn)
	end := uint64(len(blk))
	for end > 0 && blk[end-1] == 0 {
		end--
	}
	return std.BytesClone(blk[:end]), nil
}

// DeleteBlock zeroes block bn and marks it free.
func (bs *BlockStore) DeleteBlock(bn common.Bnum) error {
	defer bs.ops[deleteOp].Record(time.Now())
	free, err := bs.bm.IsFree(bn)
	if err != nil {
		return err
	}
	if free {
		return fmt.Errorf("block %d: %w", bn, fserr.ErrBlockAlreadyFree)
	}
	bs.d.Write(bn, make(disk.Block, common.BlockSize))
	util.DPrintf(5, "DeleteBlock: %d\n", bn)
	return bs.bm.SetFree(bn)
}

// FreeBlock marks bn free without touching its content. Used when a
// file shrinks: the stale bytes are never readable again because the
// bitmap guards reads.
func (bs *BlockStore) FreeBlock(bn common.Bnum) error {
	return bs.bm.SetFree(bn)
}

// IsFree reports block bn's bitmap state.
func (bs *BlockStore) IsFree(bn common.Bnum) (bool, error) {
	return bs.bm.IsFree(bn)
}

// Flush forces written blocks to durable storage.
func (bs *BlockStore) Flush() {
	bs.d.Barrier()
}

func (bs *BlockStore) Close() {
	bs.d.Barrier()
	bs.d.Close()
}

// WriteStats renders the operation latency table.
func (bs *BlockStore) WriteStats() string {
	return stats.FormatTable(opNames, bs.ops[:])
}

func (bs *BlockStore) ResetStats() {
	for i := range bs.ops {
		bs.ops[i].Reset()
	}
}
