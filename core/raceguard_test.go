package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
)

// Simulates the creation race: a competing request commits the same phone
// between this request's resolver miss and its optimistic insert.
func TestCreationRace_PhoneCollisionCollapsesToWinner(t *testing.T) {
	f := newFixture(t, core.Config{AllowLocalFallback: true})
	localChain(f)
	ctx := context.Background()

	var winnerID string
	f.identities.beforeInsert = func(ctx context.Context) {
		winner := &core.Identity{
			ID:                 "winner-1",
			Phone:              strp("+919876543210"),
			RegistrationMethod: core.MethodOneTimeCode,
			AccountType:        core.AccountCodeOnly,
			PhoneVerified:      true,
			CanLinkEmail:       true,
		}
		require.NoError(t, f.identities.inner.Insert(ctx, winner))
		winnerID = winner.ID
	}

	res := verifyPhone(t, f, "+919876543210")
	require.False(t, res.Created)
	require.Equal(t, winnerID, res.Identity.ID)

	// Exactly one account holds the phone.
	matches, err := f.identities.Find(ctx, core.IdentityQuery{PhoneVariants: []string{"+919876543210"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestCreationRace_EmailCollisionDuringRegistrationLinks(t *testing.T) {
	f := newFixture(t, core.Config{})

	// Competitor commits a passwordless social account with the same email
	// after the resolver misses.
	f.identities.beforeInsert = func(ctx context.Context) {
		winner := &core.Identity{
			ID:                 "winner-2",
			Email:              strp("raced@example.com"),
			RegistrationMethod: core.MethodSocial,
			AccountType:        core.AccountCodeOnly,
			EmailVerified:      true,
			CanLinkEmail:       true,
		}
		require.NoError(t, f.identities.inner.Insert(ctx, winner))
	}

	res := f.register(t, "raced@example.com", "password123", "")
	require.False(t, res.Created)
	require.True(t, res.Linked)
	require.Equal(t, "winner-2", res.Identity.ID)
	require.Equal(t, core.AccountUnified, res.Identity.AccountType)
	require.NotNil(t, res.Identity.PasswordHash)
}

func TestCreationRace_MultipleWinnersSurfaceIntegrityFault(t *testing.T) {
	f := newFixture(t, core.Config{})

	// Two competitors commit: one claims the email, the other the phone. The
	// requery after the insert collision sees both and must not pick one.
	f.identities.beforeInsert = func(ctx context.Context) {
		require.NoError(t, f.identities.inner.Insert(ctx, &core.Identity{
			ID:                 "winner-email",
			Email:              strp("raced@example.com"),
			RegistrationMethod: core.MethodSocial,
			AccountType:        core.AccountCodeOnly,
			EmailVerified:      true,
			CanLinkEmail:       true,
		}))
		require.NoError(t, f.identities.inner.Insert(ctx, &core.Identity{
			ID:                 "winner-phone",
			Phone:              strp("+919876543210"),
			RegistrationMethod: core.MethodOneTimeCode,
			AccountType:        core.AccountCodeOnly,
			PhoneVerified:      true,
			CanLinkEmail:       true,
		}))
	}

	_, err := f.svc.RegisterOrLink(context.Background(), core.RegisterInput{
		Email:    "raced@example.com",
		Password: "password123",
		Phone:    "+919876543210",
	})
	var fault *core.IntegrityFaultError
	require.ErrorAs(t, err, &fault)
	require.Equal(t, 2, fault.Matches)
}

func TestCreationRace_BlockedWinnerSurfacesConflict(t *testing.T) {
	f := newFixture(t, core.Config{})

	// Competitor commits a fully unified account with the same email.
	f.identities.beforeInsert = func(ctx context.Context) {
		winner := &core.Identity{
			ID:                 "winner-3",
			Email:              strp("raced@example.com"),
			Phone:              strp("+919876543210"),
			PasswordHash:       strp("$argon2id$..."),
			RegistrationMethod: core.MethodUnified,
			AccountType:        core.AccountUnified,
			EmailVerified:      true,
			PhoneVerified:      true,
		}
		require.NoError(t, f.identities.inner.Insert(ctx, winner))
	}

	_, err := f.svc.RegisterOrLink(context.Background(), core.RegisterInput{
		Email:    "raced@example.com",
		Password: "password123",
	})
	var blocked *core.LinkingBlockedError
	require.ErrorAs(t, err, &blocked)
}
