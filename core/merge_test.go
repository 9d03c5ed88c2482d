package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
)

func localChain(f *fixture) {
	fixed := &fakeFixed{fakeDirect: fakeDirect{name: "local", configured: true}, code: "000000"}
	f.svc.WithCodeProviders(fixed)
}

func verifyPhone(t *testing.T, f *fixture, phone string) *core.AuthResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SendVerificationCode(ctx, phone)
	require.NoError(t, err)
	res, err := f.svc.VerifyCode(ctx, phone, "000000")
	require.NoError(t, err)
	return res
}

func TestAttachVerifiedPhone_FillsEmptyPhoneAndPromotes(t *testing.T) {
	f := newFixture(t, core.Config{AllowLocalFallback: true})
	localChain(f)
	ctx := context.Background()

	reg := f.register(t, "owner@example.com", "password123", "")
	require.Equal(t, core.AccountPasswordOnly, reg.Identity.AccountType)

	updated, err := f.svc.AttachVerifiedPhone(ctx, reg.Identity.ID, "+919876543210")
	require.NoError(t, err)
	require.Equal(t, "+919876543210", *updated.Phone)
	require.True(t, updated.PhoneVerified)
	// Email + password + verified phone: the account is now unified.
	require.Equal(t, core.AccountUnified, updated.AccountType)
}

func TestAttachVerifiedPhone_MergesStaleCodeOnlyAccount(t *testing.T) {
	f := newFixture(t, core.Config{AllowLocalFallback: true})
	localChain(f)
	ctx := context.Background()

	// A code-only account owns the phone.
	stale := verifyPhone(t, f, "+919876543210")
	require.True(t, stale.Created)

	// A separate password account claims the same phone after verifying it.
	reg := f.register(t, "owner@example.com", "password123", "")
	merged, err := f.svc.AttachVerifiedPhone(ctx, reg.Identity.ID, "9876543210")
	require.NoError(t, err)
	require.Equal(t, reg.Identity.ID, merged.ID)
	require.Equal(t, "+919876543210", *merged.Phone)
	require.True(t, merged.PhoneVerified)

	// The stale account is gone; the phone resolves to the merged one.
	res, err := f.svc.ResolveIdentity(ctx, "", "+919876543210")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, reg.Identity.ID, res.Identity.ID)
}

func TestAttachVerifiedPhone_RefusesToMergeAwayUnifiedAccount(t *testing.T) {
	f := newFixture(t, core.Config{AllowLocalFallback: true})
	localChain(f)
	ctx := context.Background()

	// Fully unified account owns the phone.
	verifyPhone(t, f, "+919876543210")
	f.register(t, "first@example.com", "password123", "+919876543210")

	other := f.register(t, "second@example.com", "password123", "")
	_, err := f.svc.AttachVerifiedPhone(ctx, other.Identity.ID, "+919876543210")
	var dup *core.DuplicateAccountError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "phone", dup.Field)
}

func TestMergeIdentities_RestoresSourceWhenTargetUpdateFails(t *testing.T) {
	f := newFixture(t, core.Config{AllowLocalFallback: true})
	localChain(f)
	ctx := context.Background()

	stale := verifyPhone(t, f, "+919876543210")
	reg := f.register(t, "owner@example.com", "password123", "")

	f.identities.updateErr = errors.New("storage offline")
	_, err := f.svc.AttachVerifiedPhone(ctx, reg.Identity.ID, "+919876543210")
	require.Error(t, err)

	// The failed merge must not lose the account that owns the phone.
	res, err := f.svc.ResolveIdentity(ctx, "", "+919876543210")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, stale.Identity.ID, res.Identity.ID)

	// With storage healthy again the merge completes.
	merged, err := f.svc.AttachVerifiedPhone(ctx, reg.Identity.ID, "+919876543210")
	require.NoError(t, err)
	require.Equal(t, reg.Identity.ID, merged.ID)
	require.Equal(t, "+919876543210", *merged.Phone)
}

func TestMergeIdentities_SameIdentityIsNoop(t *testing.T) {
	f := newFixture(t, core.Config{})
	reg := f.register(t, "owner@example.com", "password123", "+919876543210")

	out, err := f.svc.MergeIdentities(context.Background(), reg.Identity, reg.Identity)
	require.NoError(t, err)
	require.Equal(t, reg.Identity.ID, out.ID)
}
