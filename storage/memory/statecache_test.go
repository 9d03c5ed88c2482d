package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	oidckit "github.com/roomhive/identitykit/oidc"
)

func TestStateCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewStateCache(time.Minute)

	data := oidckit.StateData{
		Provider:    "google",
		Verifier:    "pkce-verifier",
		Nonce:       "nonce-1",
		RedirectURI: "http://localhost:8080/auth/oidc/callback",
	}
	require.NoError(t, c.Put(ctx, "state-1", data))

	got, ok, err := c.Get(ctx, "state-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, data, got)

	require.NoError(t, c.Del(ctx, "state-1"))
	_, ok, err = c.Get(ctx, "state-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
