package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const keyPrefix = "clausescan:v1:"

// Cache stores byte payloads keyed by content identity
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ContentKey identifies a document by the SHA-256 of its bytes.
// The namespace separates payload kinds stored for the same document.
func ContentKey(namespace string, data []byte) string {
	hash := sha256.Sum256(data)
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// Identity returns the bare content hash of data
func Identity(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
