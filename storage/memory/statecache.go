package memorystore

import (
	"context"
	"encoding/json"
	"time"

	oidckit "github.com/roomhive/identitykit/oidc"
)

// StateCache stores pending OIDC login state in the in-process KV. Single-node
// and local development only; servers use the Redis-backed cache.
type StateCache struct {
	kv  *KV
	ttl time.Duration
}

func NewStateCache(ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &StateCache{kv: NewKV(), ttl: ttl}
}

func (c *StateCache) Put(ctx context.Context, state string, data oidckit.StateData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, state, b, c.ttl)
}

func (c *StateCache) Get(ctx context.Context, state string) (oidckit.StateData, bool, error) {
	b, ok, err := c.kv.Get(ctx, state)
	if err != nil || !ok {
		return oidckit.StateData{}, false, err
	}
	var data oidckit.StateData
	if err := json.Unmarshal(b, &data); err != nil {
		return oidckit.StateData{}, false, err
	}
	return data, true, nil
}

func (c *StateCache) Del(ctx context.Context, state string) error {
	return c.kv.Del(ctx, state)
}
