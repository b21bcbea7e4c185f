// Package store provides durable local key-value storage.
package store

import "context"

// KV abstracts a string key-value store.
// Get reports ok=false when the key has never been set or was deleted.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
