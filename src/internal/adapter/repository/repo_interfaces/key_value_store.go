package repo_interfaces

import "context"

// KeyValueStore is the durable client-side state store. Get returns
// commons.ErrRecordNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
