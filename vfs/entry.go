package vfs

import (
	"strings"

	"github.com/mit-pdos/go-blockfs/common"
)

// Kind distinguishes file entries from directory entries.
type Kind uint32

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Entry describes one file or directory. Path is the canonical
// absolute path and the table key. Blocks is the ordered chain holding
// a file's content; it is empty for directories and owned exclusively
// by this entry. len(Blocks) always equals ceil(Size/BlockSize).
type Entry struct {
	Path   string
	Kind   Kind
	Size   uint64
	Blocks []common.Bnum
}

// Name returns the entry's final path component ("/" for the root).
func (e *Entry) Name() string {
	if e.Path == "/" {
		return "/"
	}
	return e.Path[strings.LastIndexByte(e.Path, '/')+1:]
}

func (e *Entry) clone() *Entry {
	return &Entry{
		Path:   e.Path,
		Kind:   e.Kind,
		Size:   e.Size,
		Blocks: append([]common.Bnum(nil), e.Blocks...),
	}
}
