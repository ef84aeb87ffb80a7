package usage

import (
	"context"
	"encoding/json"
	"fmt"
)

// kv is the consumer interface for key-value usage persistence (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVBackend stores the usage map as a single JSON value in a key-value store.
// Like FileBackend it fails open: an unreadable or corrupt value loads as an
// empty map.
type KVBackend struct {
	store kv
	key   string
}

// NewKVBackend creates a key-value backend using the given storage key.
func NewKVBackend(store kv, key string) *KVBackend {
	return &KVBackend{store: store, key: key}
}

func (b *KVBackend) Load(ctx context.Context) (map[string]Record, error) {
	data, err := b.store.Get(ctx, b.key)
	if err != nil {
		return map[string]Record{}, nil
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string]Record{}, nil
	}
	return records, nil
}

func (b *KVBackend) Save(ctx context.Context, records map[string]Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("usage marshal: %w", err)
	}
	if err := b.store.Set(ctx, b.key, data); err != nil {
		return fmt.Errorf("usage SET %s: %w", b.key, err)
	}
	return nil
}
