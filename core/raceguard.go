package core

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// Creation Race Guard: two concurrent requests for the same phone can both
// reach the "not found" branch before either commits. The guard attempts an
// optimistic insert and converts a uniqueness violation into "someone else
// just created it". No locks.

// insertOrRecover inserts ident; on a uniqueness violation it re-runs the
// given requery and returns the winning record. Generic over any
// identity-like entity keyed by unique fields.
func insertOrRecover(ctx context.Context, store IdentityStore, ident *Identity,
	requery func(ctx context.Context) (*Identity, error)) (winner *Identity, created bool, dup *DuplicateKeyError, err error) {
	insertErr := store.Insert(ctx, ident)
	if insertErr == nil {
		return ident, true, nil, nil
	}
	var dke *DuplicateKeyError
	if !errors.As(insertErr, &dke) {
		return nil, false, nil, insertErr
	}
	existing, reErr := requery(ctx)
	if reErr != nil {
		return nil, false, dke, reErr
	}
	if existing != nil {
		return existing, false, nil, nil
	}
	// Re-read found nothing: the collision was on an unrelated unique field.
	return nil, false, dke, nil
}

// createIdentityGuarded creates a new identity, collapsing concurrent
// creations for the same key into one record. The recovery path runs at most
// once; a second collision is surfaced as a fatal integrity fault.
func (s *Service) createIdentityGuarded(ctx context.Context, ident *Identity) (*Identity, bool, error) {
	requery := func(ctx context.Context) (*Identity, error) {
		q := IdentityQuery{}
		if ident.Email != nil {
			q.Email = *ident.Email
		}
		if ident.Phone != nil {
			q.PhoneVariants = s.normalizer.Variants(*ident.Phone)
		}
		matches, err := s.identities.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, nil
		}
		if len(matches) > 1 {
			return nil, &IntegrityFaultError{Key: identityKeyOf(ident), Matches: len(matches)}
		}
		return &matches[0], nil
	}

	winner, created, dup, err := insertOrRecover(ctx, s.identities, ident, requery)
	if err != nil {
		return nil, false, err
	}
	if winner != nil {
		if !created {
			s.log.Info("creation race recovered", zap.String("identity_id", winner.ID))
		}
		return winner, created, nil
	}

	// Pathological: the collision was on a unique field that is not the
	// identity key. Disambiguate the secondary identifier and retry once.
	retry := *ident
	retry.ID = newIdentityID()
	if dup != nil && dup.Field == "email" && retry.Email != nil {
		retry.Email = strPtr(disambiguateEmail(*retry.Email))
	}
	winner, created, _, err = insertOrRecover(ctx, s.identities, &retry, requery)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		fault := &IntegrityFaultError{Key: identityKeyOf(ident), Matches: 0}
		s.log.Error("creation race guard exhausted", zap.String("key", fault.Key))
		return nil, false, fault
	}
	return winner, created, nil
}

// disambiguateEmail appends a short random suffix to the local part so the
// record can be created without claiming the contested address.
func disambiguateEmail(email string) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	suffix := strings.ToLower(base58.Encode(b))
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email + "+" + suffix
	}
	return email[:at] + "+" + suffix + email[at:]
}

func identityKeyOf(ident *Identity) string {
	if ident.Phone != nil {
		return *ident.Phone
	}
	if ident.Email != nil {
		return *ident.Email
	}
	return ident.ID
}
