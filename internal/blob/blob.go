// Package blob stores uploaded bytes keyed by file identifier.
package blob

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals that no blob exists for the identifier.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidID rejects identifiers that cannot safely name a blob.
	ErrInvalidID = errors.New("invalid blob id")
)

// Store is the byte storage shared by the upload and consumption paths.
type Store interface {
	// Ensure creates the backing directory or bucket when absent.
	Ensure(ctx context.Context) error
	Put(ctx context.Context, id string, data []byte) error
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) ([]byte, error)
	// Delete is idempotent: removing a missing blob is not an error.
	Delete(ctx context.Context, id string) error
	// List returns the identifiers of every stored blob.
	List(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
