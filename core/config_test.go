package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
	oidckit "github.com/roomhive/identitykit/oidc"
)

func TestConfigProvidersFlowThroughOptions(t *testing.T) {
	f := newFixture(t, core.Config{
		Providers: map[string]oidckit.RPConfig{
			"google": {
				Issuer:       "https://accounts.google.com",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				Scopes:       []string{"openid", "email"},
			},
		},
	})

	got, ok := f.svc.Options().Providers["google"]
	require.True(t, ok)
	require.Equal(t, "client-id", got.ClientID)
	require.Equal(t, []string{"openid", "email"}, got.Scopes)
}
