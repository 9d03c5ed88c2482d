package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	oidckit "github.com/roomhive/identitykit/oidc"
)

// StateCache stores pending OIDC login state in the Redis KV, JSON-encoded
// under a prefixed key so the callback leg can run on any instance.
type StateCache struct {
	kv  *KV
	ttl time.Duration
}

func NewStateCache(rdb *redis.Client, ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &StateCache{kv: NewKV(rdb), ttl: ttl}
}

func stateKey(state string) string { return "identitykit:oidc:state:" + state }

func (c *StateCache) Put(ctx context.Context, state string, data oidckit.StateData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, stateKey(state), b, c.ttl)
}

func (c *StateCache) Get(ctx context.Context, state string) (oidckit.StateData, bool, error) {
	b, ok, err := c.kv.Get(ctx, stateKey(state))
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
	return c.kv.Del(ctx, stateKey(state))
}
