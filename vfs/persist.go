package vfs

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
	"github.com/mit-pdos/go-blockfs/snap"
)

// Snapshot layout: entry count, then per entry path length, path
// bytes, kind (uint32), logical size, block count, block indices; the
// block store section follows (see store.Snapshot). Entries are
// written in sorted path order so snapshots are byte-deterministic.

// Save writes the metadata snapshot for the whole file system (table
// plus block store) to w and flushes the disk image.
func (fs *Fs) Save(w io.Writer) error {
	paths := fs.tbl.paths()

	sz := uint64(8)
	for _, p := range paths {
		e := fs.tbl.get(p)
		sz += 8 + uint64(len(p)) + 4 + 8 + 8 + 8*uint64(len(e.Blocks))
	}
	sw := snap.NewWriter(sz)
	sw.Int(uint64(len(paths)))
	for _, p := range paths {
		e := fs.tbl.get(p)
		sw.Int(uint64(len(p)))
		sw.Bytes([]byte(p))
		sw.Int32(uint32(e.Kind))
		sw.Int(e.Size)
		sw.Int(uint64(len(e.Blocks)))
		for _, bn := range e.Blocks {
			sw.Int(bn)
		}
	}
	if _, err := w.Write(sw.Finish()); err != nil {
		return fmt.Errorf("save table: %w", err)
	}

	sec, err := fs.bs.Snapshot()
	if err != nil {
		return err
	}
	if _, err := w.Write(sec); err != nil {
		return fmt.Errorf("save block store: %w", err)
	}
	fs.bs.Flush()
	util.DPrintf(1, "Save: %d entries\n", len(paths))
	return nil
}

// Load replaces the namespace and block store state from a snapshot.
// The decoded table is validated (kinds, block bounds, chain length vs
// size) before it is installed; a missing or non-directory root is
// repaired afterwards. On error the in-memory state is unspecified and
// the caller should start from a fresh Fs.
func (fs *Fs) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	sr := snap.NewReader(data)

	count, err := sr.Int()
	if err != nil {
		return err
	}
	tbl := mkTable()
	for i := uint64(0); i < count; i++ {
		plen, err := sr.Int()
		if err != nil {
			return err
		}
		pathBytes, err := sr.Bytes(plen)
		if err != nil {
			return err
		}
		path := string(pathBytes)
		kind, err := sr.Int32()
		if err != nil {
			return err
		}
		if Kind(kind) != KindFile && Kind(kind) != KindDir {
			return fmt.Errorf("entry %s has kind %d: %w", path, kind, fserr.ErrCorruptSnapshot)
		}
		size, err := sr.Int()
		if err != nil {
			return err
		}
		nblocks, err := sr.Int()
		if err != nil {
			return err
		}
		if nblocks > fs.bs.NumBlocks() {
			return fmt.Errorf("entry %s has %d blocks: %w", path, nblocks, fserr.ErrCorruptSnapshot)
		}
		blocks := make([]common.Bnum, 0, nblocks)
		for j := uint64(0); j < nblocks; j++ {
			bn, err := sr.Int()
			if err != nil {
				return err
			}
			if bn >= fs.bs.NumBlocks() {
				return fmt.Errorf("entry %s block %d: %w", path, bn, fserr.ErrCorruptSnapshot)
			}
			blocks = append(blocks, bn)
		}
		if Kind(kind) == KindFile && nblocks != blocksFor(size) {
			return fmt.Errorf("entry %s: %d blocks for %d bytes: %w",
				path, nblocks, size, fserr.ErrCorruptSnapshot)
		}
		e := &Entry{Path: path, Kind: Kind(kind), Size: size, Blocks: blocks}
		if err := tbl.add(e); err != nil {
			return fmt.Errorf("%v: %w", err, fserr.ErrCorruptSnapshot)
		}
	}

	if err := fs.bs.Restore(sr); err != nil {
		return err
	}
	fs.tbl = tbl
	fs.ensureRoot()
	util.DPrintf(1, "Load: %d entries\n", fs.tbl.len())
	return nil
}
