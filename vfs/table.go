package vfs

import (
	"fmt"
	"sort"

	"github.com/mit-pdos/go-blockfs/fserr"
)

// table is the flat path-to-entry map standing in for a directory
// tree. There are no parent or child pointers; hierarchy is inferred
// from path prefixes by the callers.
type table struct {
	entries map[string]*Entry
}

func mkTable() *table {
	return &table{entries: make(map[string]*Entry)}
}

func (t *table) get(path string) *Entry {
	return t.entries[path]
}

func (t *table) add(e *Entry) error {
	if _, ok := t.entries[e.Path]; ok {
		return fmt.Errorf("%s: %w", e.Path, fserr.ErrAlreadyExists)
	}
	t.entries[e.Path] = e
	return nil
}

func (t *table) remove(path string) bool {
	if _, ok := t.entries[path]; !ok {
		return false
	}
	delete(t.entries, path)
	return true
}

func (t *table) len() int {
	return len(t.entries)
}

// paths returns every key in sorted order. Iteration over the map
// directly is fine for membership scans but not for anything whose
// output order is observable.
func (t *table) paths() []string {
	ps := make([]string, 0, len(t.entries))
	for p := range t.entries {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	return ps
}
