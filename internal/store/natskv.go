package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// NATSKV backs the store with a JetStream KeyValue bucket so several service
// instances share one persisted state.
type NATSKV struct {
	kv jetstream.KeyValue
}

// NewNATSKV opens the bucket, creating it when absent.
func NewNATSKV(ctx context.Context, js jetstream.JetStream, bucket string) (*NATSKV, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Twirl conversation store",
			History:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open KV bucket %q: %w", bucket, err)
		}
	}
	return &NATSKV{kv: kv}, nil
}

// Get reads a key, mapping missing keys to ErrKeyNotFound and transport
// failures to ErrUnavailable.
func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entry.Value(), nil
}

// Put writes a key.
func (n *NATSKV) Put(ctx context.Context, key string, value []byte) error {
	if _, err := n.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes a key; a missing key is not an error.
func (n *NATSKV) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
