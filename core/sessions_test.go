package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
	"github.com/roomhive/identitykit/password"
)

func TestIssueAndVerifySession(t *testing.T) {
	f := newFixture(t, core.Config{})
	res := f.register(t, "session@example.com", "password123", "+919876543210")

	claims, err := f.svc.VerifySession(context.Background(), res.Session.Token)
	require.NoError(t, err)
	require.Equal(t, res.Identity.ID, claims.Subject)
	require.Equal(t, "session@example.com", claims.Email)
	require.Equal(t, "+919876543210", claims.Phone)
	require.WithinDuration(t, f.now.Add(7*24*time.Hour), claims.ExpiresAt, time.Second)
}

func TestVerifySession_RejectsGarbage(t *testing.T) {
	f := newFixture(t, core.Config{})
	_, err := f.svc.VerifySession(context.Background(), "not.a.token")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestVerifySession_RejectsExpiredToken(t *testing.T) {
	f := newFixture(t, core.Config{})
	res := f.register(t, "session@example.com", "password123", "")

	// Validly signed but past its expiry.
	token, err := f.signer.Sign(context.Background(), map[string]any{
		"iss": "http://identity.test",
		"sub": res.Identity.ID,
		"aud": "roomhive-test",
		"iat": time.Now().Add(-8 * 24 * time.Hour).Unix(),
		"exp": time.Now().Add(-24 * time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = f.svc.VerifySession(context.Background(), token)
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestVerifySession_RejectsTokensIssuedBeforePasswordChange(t *testing.T) {
	f := newFixture(t, core.Config{})
	res := f.register(t, "session@example.com", "password123", "")
	token := res.Session.Token

	// Password change one hour after issuance invalidates the old token.
	f.advance(time.Hour)
	digest, err := password.HashArgon2id("newpassword456")
	require.NoError(t, err)
	changed := f.now
	_, err = f.identities.UpdateOne(context.Background(), res.Identity.ID, core.IdentityPatch{
		PasswordHash:      &digest,
		PasswordChangedAt: &changed,
	})
	require.NoError(t, err)

	_, err = f.svc.VerifySession(context.Background(), token)
	require.ErrorIs(t, err, core.ErrInvalidCredentials)

	// A token minted after the change verifies fine.
	fresh, err := f.svc.PasswordLogin(context.Background(), "session@example.com", "newpassword456")
	require.NoError(t, err)
	_, err = f.svc.VerifySession(context.Background(), fresh.Session.Token)
	require.NoError(t, err)
}

func TestVerifySession_RejectsDeletedIdentity(t *testing.T) {
	f := newFixture(t, core.Config{})
	res := f.register(t, "gone@example.com", "password123", "")

	require.NoError(t, f.identities.Delete(context.Background(), res.Identity.ID))
	_, err := f.svc.VerifySession(context.Background(), res.Session.Token)
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
}
