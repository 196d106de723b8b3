// Package common holds constants and types shared by the block store
// and the namespace layer.
package common

import (
	"github.com/tchajed/goose/machine/disk"
)

// Bnum is an index of a block on the virtual disk.
type Bnum = uint64

const (
	// BlockSize is the unit of allocation and I/O, in bytes.
	BlockSize uint64 = disk.BlockSize

	// NBLOCKS is the default capacity of a freshly created disk image.
	NBLOCKS uint64 = 256

	// ENDBNUM terminates the block-data section of a metadata
	// snapshot. It can never be a real index (capacities are far
	// below 2^64).
	ENDBNUM Bnum = ^Bnum(0)
)
