package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/roomhive/identitykit/password"
)

// LinkAttributes is the bag of new credentials/attributes a registration or
// social callback supplies.
type LinkAttributes struct {
	Name     string
	Email    string
	Password string // plain; hashed before storage
	Phone    string // free-form; canonicalized before storage
	Role     string
	Bio      string

	// EmailVerified marks the supplied email as already verified by an
	// upstream provider (social login). PhoneVerified marks the supplied
	// phone as proven by a one-time code in the current flow.
	EmailVerified bool
	PhoneVerified bool
}

// buildLinkPatch computes the patch that promotes target to a unified
// identity. Existing non-null fields are never overwritten; new values only
// fill gaps. Pure except for password hashing.
func (s *Service) buildLinkPatch(target *Identity, attrs LinkAttributes) (IdentityPatch, error) {
	patch := IdentityPatch{}

	if target.Email == nil && attrs.Email != "" {
		patch.Email = strPtr(normalizeEmail(attrs.Email))
	}
	if target.Phone == nil && attrs.Phone != "" {
		patch.Phone = strPtr(s.normalizer.Normalize(attrs.Phone))
	}
	if target.PasswordHash == nil && attrs.Password != "" {
		digest, err := password.HashArgon2id(attrs.Password)
		if err != nil {
			return IdentityPatch{}, err
		}
		patch.PasswordHash = &digest
		changed := s.now()
		patch.PasswordChangedAt = &changed
	}
	if target.Name == nil && attrs.Name != "" {
		patch.Name = strPtr(attrs.Name)
	}
	if target.Bio == nil && attrs.Bio != "" {
		patch.Bio = strPtr(attrs.Bio)
	}
	if target.Role == "" && attrs.Role != "" {
		patch.Role = strPtr(attrs.Role)
	}

	// Unconditional one-way transition to a unified identity.
	method := MethodUnified
	acct := AccountUnified
	patch.RegistrationMethod = &method
	patch.AccountType = &acct
	patch.CanLinkEmail = boolPtr(false)
	patch.ProfileCompleted = boolPtr(true)

	// Verification flags track the data present after the merge. Email is
	// the anchor credential: an email attached by its owner through a
	// password registration counts as verified. A phone counts as verified
	// only when a one-time code proved it.
	if target.Phone != nil || patch.Phone != nil {
		patch.PhoneVerified = boolPtr(target.PhoneVerified || attrs.PhoneVerified)
	}
	if target.Email != nil || patch.Email != nil {
		patch.EmailVerified = boolPtr(target.EmailVerified || attrs.EmailVerified || patch.Email != nil)
	}

	now := s.now()
	patch.LastLogin = &now
	return patch, nil
}

// linkIntoIdentity applies new credentials onto an existing identity in a
// single atomic update; no intermediate state is observable to other readers.
// Repeated merges with the same input only fill gaps, so the operation is
// idempotent beyond timestamps.
func (s *Service) linkIntoIdentity(ctx context.Context, target *Identity, attrs LinkAttributes) (*Identity, error) {
	patch, err := s.buildLinkPatch(target, attrs)
	if err != nil {
		return nil, err
	}
	updated, err := s.identities.UpdateOne(ctx, target.ID, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("identity linked",
		zap.String("identity_id", target.ID),
		zap.String("account_type", string(updated.AccountType)))
	return updated, nil
}

// MergeIdentities copies the distinguishing attribute (phone) from a stale
// source identity onto the target, then deletes the source. The source must
// itself be linkable: merging an already-unified account away is never
// permitted and returns a conflict instead.
func (s *Service) MergeIdentities(ctx context.Context, target, source *Identity) (*Identity, error) {
	if source.ID == target.ID {
		return target, nil
	}
	analysis := AnalyzeLinking(source, "", "")
	if !analysis.CanLink {
		return nil, &DuplicateAccountError{Field: "phone"}
	}

	patch := IdentityPatch{}
	if target.Phone == nil && source.Phone != nil {
		patch.Phone = source.Phone
	}
	patch.PhoneVerified = boolPtr(true)
	if target.PasswordHash != nil && (target.Email != nil || target.Phone != nil || patch.Phone != nil) {
		method := MethodUnified
		acct := AccountUnified
		patch.RegistrationMethod = &method
		patch.AccountType = &acct
		patch.CanLinkEmail = boolPtr(false)
		patch.ProfileCompleted = boolPtr(true)
	}

	// Retire the source first so its unique phone frees up for the target
	// patch; the store enforces uniqueness on write.
	if err := s.identities.Delete(ctx, source.ID); err != nil {
		return nil, err
	}
	updated, err := s.identities.UpdateOne(ctx, target.ID, patch)
	if err != nil {
		// A failed target update must not lose the record that owns the
		// phone: re-insert the source so the merge can be retried.
		if insErr := s.identities.Insert(ctx, source); insErr != nil {
			s.log.Error("merge rollback failed",
				zap.String("source_id", source.ID),
				zap.Error(insErr))
		}
		return nil, err
	}
	s.log.Info("identities merged",
		zap.String("target_id", target.ID),
		zap.String("source_id", source.ID))
	return updated, nil
}

// AttachVerifiedPhone handles a logged-in user verifying a phone number that
// may already be owned by a stale code-only identity.
func (s *Service) AttachVerifiedPhone(ctx context.Context, targetID, phoneRaw string) (*Identity, error) {
	canonical := s.normalizer.Normalize(phoneRaw)
	if canonical == "" {
		return nil, &ValidationError{Field: "phone", Reason: "no digits"}
	}
	targets, err := s.identities.Find(ctx, IdentityQuery{ID: targetID})
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNotFound
	}
	target := &targets[0]

	res, err := s.ResolveIdentity(ctx, "", canonical)
	if err != nil {
		return nil, err
	}
	if res.Found {
		return s.MergeIdentities(ctx, target, res.Identity)
	}

	patch := IdentityPatch{Phone: &canonical, PhoneVerified: boolPtr(true)}
	if target.PasswordHash != nil && target.Email != nil {
		method := MethodUnified
		acct := AccountUnified
		patch.RegistrationMethod = &method
		patch.AccountType = &acct
		patch.CanLinkEmail = boolPtr(false)
		patch.ProfileCompleted = boolPtr(true)
	}
	return s.identities.UpdateOne(ctx, target.ID, patch)
}
