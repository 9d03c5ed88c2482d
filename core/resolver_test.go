package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
)

func TestResolveIdentity_NotFound(t *testing.T) {
	f := newFixture(t, core.Config{})
	res, err := f.svc.ResolveIdentity(context.Background(), "nobody@example.com", "")
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Nil(t, res.Identity)
}

func TestResolveIdentity_RejectsMalformedInputBeforeStorage(t *testing.T) {
	f := newFixture(t, core.Config{})

	var verr *core.ValidationError
	_, err := f.svc.ResolveIdentity(context.Background(), "not-an-email", "")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "email", verr.Field)

	_, err = f.svc.ResolveIdentity(context.Background(), "", "---")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "phone", verr.Field)

	_, err = f.svc.ResolveIdentity(context.Background(), "", "")
	require.ErrorAs(t, err, &verr)
}

func TestResolveIdentity_FindsByAnyPhoneVariant(t *testing.T) {
	f := newFixture(t, core.Config{DefaultCountryCode: "91"})
	f.register(t, "owner@example.com", "password123", "+919876543210")

	// A record stored in canonical form must be found from any way a user
	// might type the number.
	for _, raw := range []string{"+919876543210", "919876543210", "9876543210", "09876543210", "00919876543210"} {
		res, err := f.svc.ResolveIdentity(context.Background(), "", raw)
		require.NoError(t, err, raw)
		require.True(t, res.Found, raw)
		require.Equal(t, "owner@example.com", *res.Identity.Email, raw)
	}
}

func TestResolveIdentity_EmailLookupIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, core.Config{})
	f.register(t, "Owner@Example.COM", "password123", "")

	res, err := f.svc.ResolveIdentity(context.Background(), "owner@example.com", "")
	require.NoError(t, err)
	require.True(t, res.Found)
}

func TestResolveIdentity_MultipleMatchesIsIntegrityFault(t *testing.T) {
	f := newFixture(t, core.Config{})
	f.register(t, "a@example.com", "password123", "+919876543210")
	f.register(t, "b@example.com", "password123", "+919876543211")

	// Email of one account, phone of another: two matches for one query.
	_, err := f.svc.ResolveIdentity(context.Background(), "a@example.com", "+919876543211")
	var fault *core.IntegrityFaultError
	require.True(t, errors.As(err, &fault))
	require.Equal(t, 2, fault.Matches)
}
