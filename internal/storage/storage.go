package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable tags backend I/O failures. Callers do not retry inline; the
// reconciliation sweep picks up records left behind by a failed write.
var ErrUnavailable = errors.New("storage unavailable")

// PutResult describes one persisted blob.
type PutResult struct {
	URL  string
	ETag string
	Size int64
}

// ObjectInfo describes one listed blob.
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
	URL          string
}

// BlobStore is the byte-storage abstraction shared by the local filesystem
// and Supabase Storage backends. Put overwrites any existing object under the
// same name, so retries with the same name are idempotent.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) (*PutResult, error)
	// Delete reports whether an object existed and was removed. Absence is
	// not an error.
	Delete(ctx context.Context, name string) (bool, error)
	// URL is pure: no I/O, deterministic for a given store and name.
	URL(name string) string
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
