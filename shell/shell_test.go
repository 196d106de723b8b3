package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-blockfs/store"
	"github.com/mit-pdos/go-blockfs/vfs"
)

type testShell struct {
	t   *testing.T
	fs  *vfs.Fs
	sh  *Shell
	out *bytes.Buffer
}

func mkTestShell(t *testing.T) *testShell {
	fs := vfs.MkFs(store.MkBlockStore(disk.NewMemDisk(32)))
	out := new(bytes.Buffer)
	return &testShell{t: t, fs: fs, sh: New(fs, out), out: out}
}

// run dispatches one line and returns the output it produced.
func (ts *testShell) run(line string) string {
	ts.out.Reset()
	exit := ts.sh.Dispatch(line)
	require.False(ts.t, exit, "unexpected exit from %q", line)
	return ts.out.String()
}

func TestCreateAndRead(t *testing.T) {
	ts := mkTestShell(t)
	out := ts.run("create_file /a.txt")
	assert.Contains(t, out, "Default file size is 100")
	ts.run("write_file /a.txt hello false")
	out = ts.run("read_file /a.txt")
	assert.Contains(t, out, "Contents of /a.txt:")
	assert.Contains(t, out, "hello")
}

func TestCreateFileSizeArg(t *testing.T) {
	ts := mkTestShell(t)
	assert.Empty(t, ts.run("create_file /b.txt 5000"))

	e, err := ts.fs.GetMetadata("/b.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), e.Size)
	assert.Len(t, e.Blocks, 2)
}

func TestCreateFileBadSize(t *testing.T) {
	ts := mkTestShell(t)
	assert.Contains(t, ts.run("create_file /c.txt nope"), "Error:")
	assert.Contains(t, ts.run("create_file /c.txt 0"), "Error:")
	assert.Contains(t, ts.run("create_file /c.txt 99999999"), "Error:")
	_, err := ts.fs.GetMetadata("/c.txt")
	assert.Error(t, err)
}

func TestWriteFileParsing(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /w.txt 1")

	// plain overwrite, then default append
	ts.run("write_file /w.txt one false")
	ts.run("write_file /w.txt two")
	got, err := ts.fs.ReadFile("/w.txt")
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(got))

	// quoting preserves spaces
	ts.run(`write_file /w.txt "a b c" false`)
	got, err = ts.fs.ReadFile("/w.txt")
	require.NoError(t, err)
	assert.Equal(t, "a b c", string(got))

	// quoting protects a literal trailing "false"
	ts.run(`write_file /w.txt "it is false" false`)
	got, err = ts.fs.ReadFile("/w.txt")
	require.NoError(t, err)
	assert.Equal(t, "it is false", string(got))

	assert.Contains(t, ts.run("write_file /w.txt"), "Error: usage:")
}

func TestDeleteFileSlashPrepended(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /d.txt 1")
	assert.Empty(t, ts.run("delete_file d.txt"))
	_, err := ts.fs.GetMetadata("/d.txt")
	assert.Error(t, err)
}

func TestDeleteDirRecursiveFlag(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_dir /p")
	ts.run("create_file /p/f.txt 1")

	assert.Contains(t, ts.run("delete_dir /p false"), "Error:")
	_, err := ts.fs.GetMetadata("/p/f.txt")
	assert.NoError(t, err)

	// recursive is the default
	assert.Empty(t, ts.run("delete_dir /p"))
	_, err = ts.fs.GetMetadata("/p")
	assert.Error(t, err)
}

func TestListDir(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /docs/a.txt 1")
	ts.run("create_dir /docs/sub")

	out := ts.run("list_dir /docs")
	assert.Contains(t, out, "Contents of /docs:")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "sub")
	assert.Contains(t, out, "file")
	assert.Contains(t, out, "dir")

	// bare list defaults to the root, and "list" is an alias
	out = ts.run("list")
	assert.Contains(t, out, "Contents of /:")
	assert.Contains(t, out, "docs")
}

func TestMoveAndRename(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /m.txt 1")
	ts.run("write_file /m.txt data false")
	ts.run("create_dir /dst")

	assert.Empty(t, ts.run("move_file /m.txt /dst/m.txt"))
	assert.Empty(t, ts.run("rename /dst/m.txt n.txt"))
	got, err := ts.fs.ReadFile("/dst/n.txt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	assert.Contains(t, ts.run("move_file /only-one"), "Error: usage:")
	assert.Contains(t, ts.run("move_dir /nope /other"), "Error:")
}

func TestStat(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /s.txt 5000")
	out := ts.run("stat /s.txt")
	assert.Contains(t, out, "/s.txt: file, 5000 bytes, 2 blocks")
	assert.Contains(t, ts.run("stat /missing"), "Error:")
}

func TestStats(t *testing.T) {
	ts := mkTestShell(t)
	ts.run("create_file /s.txt 1")
	ts.run("write_file /s.txt x false")
	out := ts.run("stats")
	assert.Contains(t, out, "alloc")
	assert.Contains(t, out, "write")
}

func TestUnknownAndHelp(t *testing.T) {
	ts := mkTestShell(t)
	assert.Contains(t, ts.run("frobnicate"), "Unknown command")
	out := ts.run("help")
	assert.Contains(t, out, "create_file <path> [size]")
	assert.Contains(t, out, "exit")
	assert.Empty(t, ts.run("   "))
}

func TestRunLoop(t *testing.T) {
	ts := mkTestShell(t)
	in := strings.NewReader("create_file /r.txt 1\nwrite_file /r.txt hi false\nexit\n")
	ts.sh.Run(in)

	out := ts.out.String()
	assert.Contains(t, out, "blockfs shell")
	assert.Contains(t, out, "Exiting. Goodbye!")
	got, err := ts.fs.ReadFile("/r.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestRunLoopEOF(t *testing.T) {
	ts := mkTestShell(t)
	ts.sh.Run(strings.NewReader("create_dir /d\n"))
	_, err := ts.fs.GetMetadata("/d")
	assert.NoError(t, err)
}
