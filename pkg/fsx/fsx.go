// Package fsx abstracts the read-only file access used at startup to load
// model declarations and signing keys.
package fsx

import (
	"context"
	"errors"
)

// ErrNotExist is returned (possibly wrapped) when a path is missing.
var ErrNotExist = errors.New("fsx: file does not exist")

// FileReader provides read-only operations
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// PathOperations provides path manipulation functionality
type PathOperations interface {
	Join(elem ...string) string
}

// PathReader combines read and path operations
type PathReader interface {
	FileReader
	PathOperations
}
