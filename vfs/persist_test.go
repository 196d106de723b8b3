package vfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
	"github.com/mit-pdos/go-blockfs/snap"
	"github.com/mit-pdos/go-blockfs/store"
)

func populate(ts *testFs) {
	ts.mkdir("/docs")
	ts.create("/docs/a.txt", 0)
	ts.write("/docs/a.txt", "alpha", false)
	ts.create("/docs/big.bin", 0)
	require.NoError(ts.t, ts.fs.WriteFile("/docs/big.bin", mkdata(common.BlockSize+321), false))
	ts.create("/docs/nul.bin", 0)
	require.NoError(ts.t, ts.fs.WriteFile("/docs/nul.bin", []byte{9, 0, 0, 0}, false))
	ts.mkdir("/empty")
}

func saveLoad(t *testing.T, ts *testFs, nblk uint64) *testFs {
	var buf bytes.Buffer
	require.NoError(t, ts.fs.Save(&buf))

	ts2 := mkTestFs(t, nblk)
	require.NoError(t, ts2.fs.Load(&buf))
	return ts2
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ts := mkTestFs(t, 16)
	populate(ts)

	ts2 := saveLoad(t, ts, 16)
	assert.Equal(t, ts.fs.NumEntries(), ts2.fs.NumEntries())
	assert.Equal(t, ts.list("/"), ts2.list("/"))
	assert.Equal(t, ts.list("/docs"), ts2.list("/docs"))
	ts2.readcheck("/docs/a.txt", "alpha")

	got, err := ts2.fs.ReadFile("/docs/big.bin")
	require.NoError(t, err)
	assert.Equal(t, mkdata(common.BlockSize+321), got)

	got, err = ts2.fs.ReadFile("/docs/nul.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 0, 0, 0}, got)

	e1, err := ts.fs.GetMetadata("/docs/big.bin")
	require.NoError(t, err)
	e2, err := ts2.fs.GetMetadata("/docs/big.bin")
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
	assert.Equal(t, ts.free(), ts2.free())
}

func TestSaveDeterministic(t *testing.T) {
	ts := mkTestFs(t, 16)
	populate(ts)

	var b1, b2 bytes.Buffer
	require.NoError(t, ts.fs.Save(&b1))
	require.NoError(t, ts.fs.Save(&b2))
	assert.Equal(t, b1.Bytes(), b2.Bytes())
}

func TestLoadedStateIsUsable(t *testing.T) {
	ts := mkTestFs(t, 16)
	populate(ts)
	ts2 := saveLoad(t, ts, 16)

	// mutations after a load must not collide with restored blocks
	ts2.write("/docs/a.txt", " beta", true)
	ts2.readcheck("/docs/a.txt", "alpha beta")
	ts2.create("/new.txt", 0)
	ts2.write("/new.txt", "fresh", false)
	ts2.readcheck("/new.txt", "fresh")

	got, err := ts2.fs.ReadFile("/docs/big.bin")
	require.NoError(t, err)
	assert.Equal(t, mkdata(common.BlockSize+321), got)
}

func TestLoadTruncated(t *testing.T) {
	ts := mkTestFs(t, 16)
	populate(ts)
	var buf bytes.Buffer
	require.NoError(t, ts.fs.Save(&buf))

	data := buf.Bytes()
	for _, cut := range []int{0, 3, len(data) / 2, len(data) - 1} {
		ts2 := mkTestFs(t, 16)
		err := ts2.fs.Load(bytes.NewReader(data[:cut]))
		assert.ErrorIs(t, err, fserr.ErrCorruptSnapshot, "cut at %d", cut)
	}
}

func TestLoadCapacityMismatch(t *testing.T) {
	ts := mkTestFs(t, 16)
	populate(ts)
	var buf bytes.Buffer
	require.NoError(t, ts.fs.Save(&buf))

	ts2 := mkTestFs(t, 8)
	err := ts2.fs.Load(&buf)
	assert.ErrorIs(t, err, fserr.ErrCorruptSnapshot)
}

func TestLoadBadKind(t *testing.T) {
	sw := snap.NewWriter(8 + 8 + 1 + 4 + 8 + 8)
	sw.Int(1)
	sw.Int(1)
	sw.Bytes([]byte("x"))
	sw.Int32(7)
	sw.Int(0)
	sw.Int(0)

	ts := mkTestFs(t, 8)
	err := ts.fs.Load(bytes.NewReader(sw.Finish()))
	assert.ErrorIs(t, err, fserr.ErrCorruptSnapshot)
}

func TestLoadChainMismatch(t *testing.T) {
	// a file claiming two blocks' worth of size but no blocks
	path := "/liar"
	sw := snap.NewWriter(8 + 8 + uint64(len(path)) + 4 + 8 + 8)
	sw.Int(1)
	sw.Int(uint64(len(path)))
	sw.Bytes([]byte(path))
	sw.Int32(uint32(KindFile))
	sw.Int(2 * common.BlockSize)
	sw.Int(0)

	ts := mkTestFs(t, 8)
	err := ts.fs.Load(bytes.NewReader(sw.Finish()))
	assert.ErrorIs(t, err, fserr.ErrCorruptSnapshot)
}

func TestLoadSynthesizesRoot(t *testing.T) {
	// a snapshot with zero entries still yields a working root
	bs := store.MkBlockStore(disk.NewMemDisk(8))
	sec, err := bs.Snapshot()
	require.NoError(t, err)

	sw := snap.NewWriter(8)
	sw.Int(0)
	data := append(sw.Finish(), sec...)

	ts := mkTestFs(t, 8)
	require.NoError(t, ts.fs.Load(bytes.NewReader(data)))
	e, err := ts.fs.GetMetadata("/")
	require.NoError(t, err)
	assert.Equal(t, KindDir, e.Kind)

	ts.create("/after.txt", 0)
	ts.write("/after.txt", "ok", false)
	ts.readcheck("/after.txt", "ok")
}
