package memorystore

import (
	"context"
	"sync"
	"time"
)

// KV is an in-process key-value store with per-key expiry. It backs the OIDC
// state cache when no Redis is configured; single process only.
type KV struct {
	mu      sync.Mutex
	entries map[string]kvEntry
}

type kvEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewKV() *KV {
	return &KV{entries: make(map[string]kvEntry)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(k.entries, key)
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	entry := kvEntry{payload: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	k.entries[key] = entry
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
	return nil
}
