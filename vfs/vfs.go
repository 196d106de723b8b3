// Package vfs implements the namespace layer of the virtual file
// system: a flat path-keyed table of file and directory entries over a
// block store. Every public mutation either fully commits or rolls
// back the blocks it acquired before returning.
package vfs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fserr"
	"github.com/mit-pdos/go-blockfs/store"
)

// Fs is the file-system-facing API. It exclusively owns its table and
// shares the block store it was constructed with. Single-caller model;
// no operation yields control mid-mutation.
type Fs struct {
	bs  *store.BlockStore
	tbl *table
}

// MkFs builds an empty namespace over bs. The root directory "/"
// always exists.
func MkFs(bs *store.BlockStore) *Fs {
	fs := &Fs{bs: bs, tbl: mkTable()}
	fs.ensureRoot()
	return fs
}

func (fs *Fs) ensureRoot() {
	e := fs.tbl.get("/")
	if e != nil && e.Kind == KindDir {
		return
	}
	if e != nil {
		fs.tbl.remove("/")
	}
	fs.tbl.add(&Entry{Path: "/", Kind: KindDir})
}

// ensureParents walks resolved's ancestor chain from the root down to
// (but excluding) the final component, creating missing directories.
func (fs *Fs) ensureParents(resolved string) error {
	toks := splitPath(resolved)
	cur := ""
	for i := 0; i+1 < len(toks); i++ {
		cur = cur + "/" + toks[i]
		e := fs.tbl.get(cur)
		if e == nil {
			fs.tbl.add(&Entry{Path: cur, Kind: KindDir})
		} else if e.Kind != KindDir {
			return fmt.Errorf("%s: %w", cur, fserr.ErrPathConflict)
		}
	}
	return nil
}

func blocksFor(size uint64) uint64 {
	return (size + common.BlockSize - 1) / common.BlockSize
}

func (fs *Fs) freeAll(bns []common.Bnum) {
	for _, bn := range bns {
		fs.bs.FreeBlock(bn)
	}
}

// CreateFile inserts a file entry at path with size logical bytes and
// a freshly allocated block chain. Missing parent directories are
// created. The blocks hold no defined content until the first write.
func (fs *Fs) CreateFile(path string, size uint64) error {
	if !ValidName(path) {
		return fmt.Errorf("%q: %w", path, fserr.ErrInvalidName)
	}
	resolved := ResolvePath(path)
	if err := fs.ensureParents(resolved); err != nil {
		return err
	}
	if fs.tbl.get(resolved) != nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrAlreadyExists)
	}
	n := blocksFor(size)
	blocks := make([]common.Bnum, 0, n)
	for i := uint64(0); i < n; i++ {
		bn, err := fs.bs.AllocBlock()
		if err != nil {
			fs.freeAll(blocks)
			return fmt.Errorf("create %s: %w", resolved, err)
		}
		blocks = append(blocks, bn)
	}
	util.DPrintf(2, "CreateFile: %s size %d blocks %v\n", resolved, size, blocks)
	return fs.tbl.add(&Entry{Path: resolved, Kind: KindFile, Size: size, Blocks: blocks})
}

// CreateDir inserts a directory entry at path, creating missing
// parents.
func (fs *Fs) CreateDir(path string) error {
	if !ValidName(path) {
		return fmt.Errorf("%q: %w", path, fserr.ErrInvalidName)
	}
	resolved := ResolvePath(path)
	if err := fs.ensureParents(resolved); err != nil {
		return err
	}
	if fs.tbl.get(resolved) != nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrAlreadyExists)
	}
	util.DPrintf(2, "CreateDir: %s\n", resolved)
	return fs.tbl.add(&Entry{Path: resolved, Kind: KindDir})
}

// deleteFileAt frees a file entry's blocks and removes it; resolved
// must already be canonical.
func (fs *Fs) deleteFileAt(resolved string) error {
	e := fs.tbl.get(resolved)
	if e == nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if e.Kind != KindFile {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotAFile)
	}
	for _, bn := range e.Blocks {
		if err := fs.bs.DeleteBlock(bn); err != nil {
			return fmt.Errorf("delete %s: %w", resolved, err)
		}
	}
	fs.tbl.remove(resolved)
	util.DPrintf(2, "DeleteFile: %s\n", resolved)
	return nil
}

// DeleteFile removes the file at path and frees its blocks.
func (fs *Fs) DeleteFile(path string) error {
	return fs.deleteFileAt(ResolvePath(path))
}

// DeleteDir removes the directory at path. With recursive false it
// fails on any descendant and mutates nothing; with recursive true the
// whole subtree goes, files first within each directory. The root is
// never deletable.
func (fs *Fs) DeleteDir(path string, recursive bool) error {
	resolved := ResolvePath(path)
	if resolved == "/" {
		return fserr.ErrRootProtected
	}
	e := fs.tbl.get(resolved)
	if e == nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if e.Kind != KindDir {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotADirectory)
	}
	if !recursive && fs.hasDescendants(resolved) {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrDirNotEmpty)
	}
	for _, name := range fs.childNames(resolved) {
		child := joinChild(resolved, name)
		ce := fs.tbl.get(child)
		if ce == nil {
			continue
		}
		var err error
		if ce.Kind == KindFile {
			err = fs.deleteFileAt(child)
		} else {
			err = fs.DeleteDir(child, true)
		}
		if err != nil {
			return err
		}
	}
	fs.tbl.remove(resolved)
	util.DPrintf(2, "DeleteDir: %s\n", resolved)
	return nil
}

func (fs *Fs) hasDescendants(resolved string) bool {
	prefix := resolved + "/"
	for p := range fs.tbl.entries {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// childNames returns the immediate children of a canonical directory
// path, sorted. This is a derived view: strip the directory prefix,
// keep the first component, de-duplicate.
func (fs *Fs) childNames(resolved string) []string {
	prefix := resolved + "/"
	if resolved == "/" {
		prefix = "/"
	}
	seen := make(map[string]bool)
	var names []string
	for p := range fs.tbl.entries {
		if p == resolved || !strings.HasPrefix(p, prefix) {
			continue
		}
		name := p[len(prefix):]
		if i := strings.IndexByte(name, '/'); i >= 0 {
			name = name[:i]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListDir returns the names of the directory's immediate children.
func (fs *Fs) ListDir(path string) ([]string, error) {
	resolved := ResolvePath(path)
	e := fs.tbl.get(resolved)
	if e == nil {
		return nil, fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if e.Kind != KindDir {
		return nil, fmt.Errorf("%s: %w", resolved, fserr.ErrNotADirectory)
	}
	return fs.childNames(resolved), nil
}

// readEntry reads a file's full content. The block layer trims
// trailing zeros per block, so every block is padded back to full size
// before the final truncation to the logical size; interior zero runs
// survive intact.
func (fs *Fs) readEntry(e *Entry) ([]byte, error) {
	buf := make([]byte, 0, uint64(len(e.Blocks))*common.BlockSize)
	for _, bn := range e.Blocks {
		b, err := fs.bs.ReadBlock(bn)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Path, err)
		}
		buf = append(buf, b...)
		buf = append(buf, make([]byte, int(common.BlockSize)-len(b))...)
	}
	return buf[:e.Size], nil
}

// ReadFile returns the file's content, exactly Size bytes.
func (fs *Fs) ReadFile(path string) ([]byte, error) {
	resolved := ResolvePath(path)
	e := fs.tbl.get(resolved)
	if e == nil {
		return nil, fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if e.Kind != KindFile {
		return nil, fmt.Errorf("%s: %w", resolved, fserr.ErrNotAFile)
	}
	return fs.readEntry(e)
}

// WriteFile replaces (or, with doAppend, extends) the file's content.
// Existing blocks are reused in order; extra blocks are allocated for
// growth and released on shrink. On any failure after allocation the
// fresh blocks are freed and the entry is left unmodified.
func (fs *Fs) WriteFile(path string, data []byte, doAppend bool) error {
	resolved := ResolvePath(path)
	e := fs.tbl.get(resolved)
	if e == nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if e.Kind != KindFile {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotAFile)
	}

	var content []byte
	if doAppend {
		existing, err := fs.readEntry(e)
		if err != nil {
			return err
		}
		content = existing
	}
	if util.SumOverflows(uint64(len(content)), uint64(len(data))) {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrFileTooLarge)
	}
	content = append(content, data...)
	newSize := uint64(len(content))
	if newSize > fs.bs.NumBlocks()*common.BlockSize {
		return fmt.Errorf("%s: %d bytes: %w", resolved, newSize, fserr.ErrFileTooLarge)
	}

	required := blocksFor(newSize)
	blocks := make([]common.Bnum, 0, required)
	var fresh []common.Bnum
	for i := uint64(0); i < required; i++ {
		if i < uint64(len(e.Blocks)) {
			blocks = append(blocks, e.Blocks[i])
			continue
		}
		bn, err := fs.bs.AllocBlock()
		if err != nil {
			fs.freeAll(fresh)
			return fmt.Errorf("write %s: %w", resolved, err)
		}
		blocks = append(blocks, bn)
		fresh = append(fresh, bn)
	}

	for i, bn := range blocks {
		lo := uint64(i) * common.BlockSize
		hi := min(lo+common.BlockSize, newSize)
		if err := fs.bs.WriteBlock(bn, content[lo:hi]); err != nil {
			fs.freeAll(fresh)
			return fmt.Errorf("write %s: %w", resolved, err)
		}
	}

	for i := required; i < uint64(len(e.Blocks)); i++ {
		fs.bs.FreeBlock(e.Blocks[i])
	}

	e.Size = newSize
	e.Blocks = blocks
	util.DPrintf(2, "WriteFile: %s now %d bytes in %d blocks\n", resolved, newSize, len(blocks))
	return nil
}

// MoveFile moves a file by copying its content to a fresh block chain
// at dst and then deleting src. dst's parent must already exist; it is
// not auto-created.
func (fs *Fs) MoveFile(src string, dst string) error {
	s := ResolvePath(src)
	d := ResolvePath(dst)
	if s == d {
		return fmt.Errorf("%s: %w", s, fserr.ErrSamePath)
	}
	se := fs.tbl.get(s)
	if se == nil {
		return fmt.Errorf("%s: %w", s, fserr.ErrNotFound)
	}
	if se.Kind != KindFile {
		return fmt.Errorf("%s: %w", s, fserr.ErrNotAFile)
	}
	pe := fs.tbl.get(parentOf(d))
	if pe == nil {
		return fmt.Errorf("parent of %s: %w", d, fserr.ErrNotFound)
	}
	if pe.Kind != KindDir {
		return fmt.Errorf("parent of %s: %w", d, fserr.ErrPathConflict)
	}
	if fs.tbl.get(d) != nil {
		return fmt.Errorf("%s: %w", d, fserr.ErrAlreadyExists)
	}

	content, err := fs.readEntry(se)
	if err != nil {
		return err
	}
	if err := fs.CreateFile(d, se.Size); err != nil {
		return err
	}
	if err := fs.WriteFile(d, content, false); err != nil {
		fs.deleteFileAt(d)
		return err
	}
	util.DPrintf(2, "MoveFile: %s -> %s\n", s, d)
	return fs.deleteFileAt(s)
}

// MoveDir moves a directory subtree: the destination directory is
// created, every child is moved recursively, then the source entry is
// removed. Moving a directory into itself or a descendant is rejected.
func (fs *Fs) MoveDir(src string, dst string) error {
	s := ResolvePath(src)
	d := ResolvePath(dst)
	if s == d {
		return fmt.Errorf("%s: %w", s, fserr.ErrSamePath)
	}
	if s == "/" {
		return fserr.ErrRootProtected
	}
	if strings.HasPrefix(d, s+"/") {
		return fmt.Errorf("move %s into %s: %w", s, d, fserr.ErrPathConflict)
	}
	se := fs.tbl.get(s)
	if se == nil {
		return fmt.Errorf("%s: %w", s, fserr.ErrNotFound)
	}
	if se.Kind != KindDir {
		return fmt.Errorf("%s: %w", s, fserr.ErrNotADirectory)
	}
	if fs.tbl.get(d) != nil {
		return fmt.Errorf("%s: %w", d, fserr.ErrAlreadyExists)
	}

	if err := fs.CreateDir(d); err != nil {
		return err
	}
	for _, name := range fs.childNames(s) {
		cs := joinChild(s, name)
		cd := joinChild(d, name)
		ce := fs.tbl.get(cs)
		if ce == nil {
			continue
		}
		var err error
		if ce.Kind == KindFile {
			err = fs.MoveFile(cs, cd)
		} else {
			err = fs.MoveDir(cs, cd)
		}
		if err != nil {
			return err
		}
	}
	fs.tbl.remove(s)
	util.DPrintf(2, "MoveDir: %s -> %s\n", s, d)
	return nil
}

// Rename re-keys the entry at path under a new name in the same parent
// directory. The block chain is untouched. Renaming a directory
// re-keys its whole subtree.
func (fs *Fs) Rename(path string, newName string) error {
	resolved := ResolvePath(path)
	if resolved == "/" {
		return fserr.ErrRootProtected
	}
	e := fs.tbl.get(resolved)
	if e == nil {
		return fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	if !ValidName(newName) || strings.Contains(newName, "/") ||
		newName == "." || newName == ".." {
		return fmt.Errorf("%q: %w", newName, fserr.ErrInvalidName)
	}
	dst := joinChild(parentOf(resolved), newName)
	if fs.tbl.get(dst) != nil {
		return fmt.Errorf("%s: %w", dst, fserr.ErrAlreadyExists)
	}

	fs.tbl.remove(resolved)
	e.Path = dst
	fs.tbl.add(e)
	if e.Kind == KindDir {
		prefix := resolved + "/"
		for _, p := range fs.tbl.paths() {
			if !strings.HasPrefix(p, prefix) {
				continue
			}
			ce := fs.tbl.get(p)
			fs.tbl.remove(p)
			ce.Path = dst + p[len(resolved):]
			fs.tbl.add(ce)
		}
	}
	util.DPrintf(2, "Rename: %s -> %s\n", resolved, dst)
	return nil
}

// GetMetadata returns a copy of the entry at path.
func (fs *Fs) GetMetadata(path string) (*Entry, error) {
	resolved := ResolvePath(path)
	e := fs.tbl.get(resolved)
	if e == nil {
		return nil, fmt.Errorf("%s: %w", resolved, fserr.ErrNotFound)
	}
	return e.clone(), nil
}

// NumEntries reports the table size, root included.
func (fs *Fs) NumEntries() int {
	return fs.tbl.len()
}

// Store exposes the underlying block store (for the shell's stats
// command and for tests).
func (fs *Fs) Store() *store.BlockStore {
	return fs.bs
}
