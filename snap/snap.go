// Package snap wraps the marshal encoder and decoder for the metadata
// snapshot format. The writer is a sized marshal.Enc; the reader adds
// the bounds checking marshal.Dec lacks, so a truncated or corrupt
// snapshot surfaces as ErrCorruptSnapshot instead of a panic.
package snap

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-blockfs/fserr"
)

// Writer encodes integers and raw bytes into a buffer of a precomputed
// size. Writing past the size is a programmer error (marshal panics).
type Writer struct {
	enc marshal.Enc
}

func NewWriter(sz uint64) *Writer {
	return &Writer{enc: marshal.NewEnc(sz)}
}

func (w *Writer) Int(x uint64) {
	w.enc.PutInt(x)
}

func (w *Writer) Int32(x uint32) {
	w.enc.PutInt32(x)
}

func (w *Writer) Bytes(b []byte) {
	w.enc.PutBytes(b)
}

func (w *Writer) Finish() []byte {
	return w.enc.Finish()
}

// Reader decodes a snapshot buffer, tracking the remaining length so
// every read is checked.
type Reader struct {
	dec marshal.Dec
	rem uint64
}

func NewReader(b []byte) *Reader {
	return &Reader{dec: marshal.NewDec(b), rem: uint64(len(b))}
}

func (r *Reader) need(n uint64) error {
	if r.rem < n {
		return fmt.Errorf("need %d bytes, have %d: %w", n, r.rem, fserr.ErrCorruptSnapshot)
	}
	r.rem -= n
	return nil
}

func (r *Reader) Int() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	return r.dec.GetInt(), nil
}

func (r *Reader) Int32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	return r.dec.GetInt32(), nil
}

func (r *Reader) Bytes(n uint64) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.dec.GetBytes(n), nil
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() uint64 {
	return r.rem
}
