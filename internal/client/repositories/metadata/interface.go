// Package metadata is the durable key-value store behind the session store.
//
// Values are opaque bytes. Get returns (nil, nil) for a missing key and
// Delete of a missing key is not an error.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
