package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by a KeyValueStore when the key was never set.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the local durable store: whole values under fixed keys, written synchronously.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
