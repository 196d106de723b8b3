// Package stats tracks block-operation counts and latencies.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/rodaine/table"
)

type Op struct {
	count uint64
	nanos uint64
}

// Record adds one completed operation that started at start.
func (op *Op) Record(start time.Time) {
	op.count++
	op.nanos += uint64(time.Since(start).Nanoseconds())
}

func (op Op) Count() uint64 {
	return op.count
}

func (op Op) MicrosPerOp() float64 {
	if op.count == 0 {
		return 0
	}
	return float64(op.nanos) / float64(op.count) / 1e3
}

func (op *Op) Reset() {
	op.count = 0
	op.nanos = 0
}

// WriteTable renders one row per named op plus a total row.
func WriteTable(names []string, ops []Op, w io.Writer) {
	if len(names) != len(ops) {
		panic("mismatched names and ops lists")
	}
	tbl := table.New("op", "count", "us")
	var total Op
	for i, name := range names {
		total.count += ops[i].count
		total.nanos += ops[i].nanos
		tbl.AddRow(name, ops[i].count, fmt.Sprintf("%0.1f us/op", ops[i].MicrosPerOp()))
	}
	tbl.AddRow("total", total.count, fmt.Sprintf("%0.1f us", float64(total.nanos)/1e3))
	tbl.WithWriter(w)
	tbl.Print()
}

func FormatTable(names []string, ops []Op) string {
	buf := new(bytes.Buffer)
	WriteTable(names, ops, buf)
	return buf.String()
}
