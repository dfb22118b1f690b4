// Package storage archives uploaded recipient files. Local disk for
// development, S3 for deployed environments; the driver is chosen by env.
package storage

import (
	"context"
	"io"
)

type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
	KeyPrefix   string // e.g. "batches/<batch-id>"
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
}
