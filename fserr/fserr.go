// Package fserr defines the error kinds reported by the block store and
// the namespace layer. Every fallible operation returns one of these
// sentinels, usually wrapped with context; match with errors.Is.
package fserr

import (
	"errors"
)

var (
	// Block store errors
	ErrOutOfRange       = errors.New("block index out of range")
	ErrPayloadTooLarge  = errors.New("data exceeds block size")
	ErrBlockFree        = errors.New("block is free and contains no data")
	ErrBlockAlreadyFree = errors.New("block is already free")
	ErrNoFreeBlocks     = errors.New("no free blocks available")

	// Namespace errors
	ErrInvalidName   = errors.New("invalid name")
	ErrAlreadyExists = errors.New("entry already exists")
	ErrNotFound      = errors.New("entry does not exist")
	ErrNotAFile      = errors.New("path is not a file")
	ErrNotADirectory = errors.New("path is not a directory")
	ErrDirNotEmpty   = errors.New("directory is not empty")
	ErrPathConflict  = errors.New("ancestor path exists but is not a directory")
	ErrFileTooLarge  = errors.New("file exceeds maximum size")
	ErrSamePath      = errors.New("source and destination paths are the same")
	ErrRootProtected = errors.New("root directory cannot be removed")

	// Persistence errors
	ErrCorruptSnapshot = errors.New("metadata snapshot is corrupt")
)
