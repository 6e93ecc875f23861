// Package storage keeps ciphertext envelopes in a blob store. Blobs are
// opaque to the server: it never sees plaintext or decrypts them.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlobStore persists envelopes by key. Get and Delete on a missing key
// return common.ErrorNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey returns a fresh object key partitioned by owner and date.
func NewStorageKey(ownerID string, now time.Time) string {
	return fmt.Sprintf("users/%s/%d/%02d/%02d/%v", ownerID, now.Year(), now.Month(), now.Day(), uuid.New())
}
