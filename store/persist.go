package store

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-blockfs/bitmap"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
	"github.com/mit-pdos/go-blockfs/snap"
)

// Snapshot encodes the store's section of a metadata snapshot: the
// bitmap (one byte per block, 1 = occupied), then an (index, length,
// bytes) triple for every occupied block, terminated by ENDBNUM.
// Block payloads are stored trimmed, exactly as ReadBlock returns
// them.
func (bs *BlockStore) Snapshot() ([]byte, error) {
	bm := bs.bm.Snapshot()

	var bns []common.Bnum
	var payloads [][]byte
	sz := 8 + uint64(len(bm)) + 8
	for bn := uint64(0); bn < bs.nblk; bn++ {
		if bm[bn] == 0 {
			continue
		}
		data, err := bs.ReadBlock(bn)
		if err != nil {
			return nil, fmt.Errorf("snapshot block %d: %w", bn, err)
		}
		bns = append(bns, bn)
		payloads = append(payloads, data)
		sz += 16 + uint64(len(data))
	}

	w := snap.NewWriter(sz)
	w.Int(uint64(len(bm)))
	w.Bytes(bm)
	for i, bn := range bns {
		w.Int(bn)
		w.Int(uint64(len(payloads[i])))
		w.Bytes(payloads[i])
	}
	w.Int(common.ENDBNUM)
	util.DPrintf(1, "Snapshot: %d occupied blocks, %d bytes\n", len(bns), sz)
	return w.Finish(), nil
}

// Restore replaces the store's bitmap and occupied block contents from
// a snapshot reader positioned at the store section. Blocks the
// snapshot marks free keep their stale image bytes; the bitmap guards
// them from reads.
func (bs *BlockStore) Restore(r *snap.Reader) error {
	n, err := r.Int()
	if err != nil {
		return err
	}
	if n != bs.nblk {
		return fmt.Errorf("bitmap length %d, disk has %d blocks: %w",
			n, bs.nblk, fserr.ErrCorruptSnapshot)
	}
	bm, err := r.Bytes(n)
	if err != nil {
		return err
	}
	bs.bm = bitmap.Restore(bm)

	for {
		bn, err := r.Int()
		if err != nil {
			return err
		}
		if bn == common.ENDBNUM {
			break
		}
		if bn >= bs.nblk {
			return fmt.Errorf("snapshot block index %d: %w", bn, fserr.ErrCorruptSnapshot)
		}
		l, err := r.Int()
		if err != nil {
			return err
		}
		if l > common.BlockSize {
			return fmt.Errorf("snapshot block %d has %d bytes: %w",
				bn, l, fserr.ErrCorruptSnapshot)
		}
		data, err := r.Bytes(l)
		if err != nil {
			return err
		}
		if err := bs.WriteBlock(bn, data); err != nil {
			return err
		}
	}
	util.DPrintf(1, "Restore: %d free of %d blocks\n", bs.bm.CountFree(), bs.nblk)
	return nil
}
