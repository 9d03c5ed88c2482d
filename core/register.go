package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/roomhive/identitykit/password"
)

// RegisterInput is a unified registration request. Email and password are
// required; phone is optional and attached unverified.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
	Bio      string
}

// AuthResult is what every successful entry flow returns: the identity, a
// fresh session, and flags describing how the identity was obtained.
type AuthResult struct {
	Identity *Identity
	Session  *Session
	Created  bool
	Linked   bool
}

// RegisterOrLink is the unified registration entry point. It resolves the
// supplied credentials against existing accounts and either links into a
// partial account, creates a fresh one, or rejects with a conflict when the
// match is already fully unified.
func (s *Service) RegisterOrLink(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := password.Validate(in.Password); err != nil {
		return nil, &ValidationError{Field: "password", Reason: err.Error()}
	}
	email := normalizeEmail(in.Email)
	if email == "" || !reEmail.MatchString(email) {
		return nil, &ValidationError{Field: "email", Reason: "malformed address"}
	}

	res, err := s.ResolveIdentity(ctx, email, in.Phone)
	if err != nil {
		return nil, err
	}

	if res.Found {
		if !res.Analysis.CanLink {
			return nil, &LinkingBlockedError{Reason: res.Analysis.Reason}
		}
		ident, err := s.linkIntoIdentity(ctx, res.Identity, LinkAttributes{
			Name:     in.Name,
			Email:    email,
			Password: in.Password,
			Phone:    in.Phone,
			Role:     in.Role,
			Bio:      in.Bio,
		})
		if err != nil {
			return nil, err
		}
		session, err := s.IssueSession(ctx, ident)
		if err != nil {
			return nil, err
		}
		return &AuthResult{Identity: ident, Session: session, Linked: true}, nil
	}

	digest, err := password.HashArgon2id(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	fresh := &Identity{
		ID:                 newIdentityID(),
		Email:              &email,
		PasswordHash:       &digest,
		Name:               strPtr(in.Name),
		Bio:                strPtr(in.Bio),
		Role:               in.Role,
		RegistrationMethod: MethodPassword,
		AccountType:        AccountPasswordOnly,
		EmailVerified:      true,
		PasswordChangedAt:  &now,
		CreatedAt:          now,
		LastLogin:          &now,
	}
	if in.Phone != "" {
		canonical := s.normalizer.Normalize(in.Phone)
		if canonical == "" {
			return nil, &ValidationError{Field: "phone", Reason: "no digits"}
		}
		fresh.Phone = &canonical
	}

	ident, created, err := s.createIdentityGuarded(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the creation race; the winner holds these credentials. Treat
		// exactly like the resolver having found it up front.
		analysis := AnalyzeLinking(ident, email, "")
		if !analysis.CanLink {
			return nil, &LinkingBlockedError{Reason: analysis.Reason}
		}
		ident, err = s.linkIntoIdentity(ctx, ident, LinkAttributes{
			Name:     in.Name,
			Email:    email,
			Password: in.Password,
			Phone:    in.Phone,
			Role:     in.Role,
			Bio:      in.Bio,
		})
		if err != nil {
			return nil, err
		}
	}

	session, err := s.IssueSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	s.log.Info("identity registered",
		zap.String("identity_id", ident.ID),
		zap.Bool("created", created))
	return &AuthResult{Identity: ident, Session: session, Created: created, Linked: !created}, nil
}

// PasswordLogin authenticates by email and password. Unknown email, an
// account without a password credential, and a wrong password all yield the
// same error.
func (s *Service) PasswordLogin(ctx context.Context, email, plain string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || !reEmail.MatchString(email) {
		return nil, &ValidationError{Field: "email", Reason: "malformed address"}
	}

	matches, err := s.identities.Find(ctx, IdentityQuery{Email: email})
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, ErrInvalidCredentials
	}
	ident := &matches[0]
	if ident.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, rehash, err := password.Verify(*ident.PasswordHash, plain)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	patch := IdentityPatch{LastLogin: &now}
	if rehash {
		// Transparent upgrade of a legacy digest on successful login. The
		// password itself did not change, so sessions stay valid.
		if digest, herr := password.HashArgon2id(plain); herr == nil {
			patch.PasswordHash = &digest
		}
	}
	updated, err := s.identities.UpdateOne(ctx, ident.ID, patch)
	if err != nil {
		return nil, err
	}

	session, err := s.IssueSession(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: updated, Session: session}, nil
}

// VerifyCode consumes a one-time code for the phone and logs the owner in,
// creating a code-only identity on first contact.
func (s *Service) VerifyCode(ctx context.Context, phoneRaw, code string) (*AuthResult, error) {
	canonical, err := s.consumeVerificationCode(ctx, phoneRaw, code)
	if err != nil {
		return nil, err
	}

	matches, err := s.identities.Find(ctx, IdentityQuery{PhoneVariants: s.normalizer.Variants(canonical)})
	if err != nil {
		return nil, err
	}
	if len(matches) > 1 {
		fault := &IntegrityFaultError{Key: canonical, Matches: len(matches)}
		s.log.Error("phone matched multiple identities",
			zap.Int("matches", len(matches)))
		return nil, fault
	}

	var ident *Identity
	created := false
	now := s.now()
	if len(matches) == 1 {
		patch := IdentityPatch{LastLogin: &now}
		if !matches[0].PhoneVerified {
			patch.PhoneVerified = boolPtr(true)
		}
		ident, err = s.identities.UpdateOne(ctx, matches[0].ID, patch)
		if err != nil {
			return nil, err
		}
	} else {
		fresh := &Identity{
			ID:                 newIdentityID(),
			Phone:              &canonical,
			RegistrationMethod: MethodOneTimeCode,
			AccountType:        AccountCodeOnly,
			PhoneVerified:      true,
			CanLinkEmail:       true,
			CreatedAt:          now,
			LastLogin:          &now,
		}
		ident, created, err = s.createIdentityGuarded(ctx, fresh)
		if err != nil {
			return nil, err
		}
	}

	session, err := s.IssueSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: ident, Session: session, Created: created}, nil
}

// SocialClaims is the subset of an OIDC id-token this core consumes.
type SocialClaims struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// SocialLogin resolves an OIDC callback into an identity: an existing account
// with the provider email logs in (linking when partial), otherwise a
// passwordless account is created.
func (s *Service) SocialLogin(ctx context.Context, claims SocialClaims) (*AuthResult, error) {
	email := normalizeEmail(claims.Email)
	if email == "" || !reEmail.MatchString(email) {
		return nil, &ValidationError{Field: "email", Reason: "provider returned no usable email"}
	}

	res, err := s.ResolveIdentity(ctx, email, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res.Found {
		patch := IdentityPatch{LastLogin: &now}
		if claims.EmailVerified && !res.Identity.EmailVerified {
			patch.EmailVerified = boolPtr(true)
		}
		if res.Identity.Name == nil && claims.Name != "" {
			patch.Name = strPtr(claims.Name)
		}
		ident, err := s.identities.UpdateOne(ctx, res.Identity.ID, patch)
		if err != nil {
			return nil, err
		}
		session, err := s.IssueSession(ctx, ident)
		if err != nil {
			return nil, err
		}
		return &AuthResult{Identity: ident, Session: session}, nil
	}

	fresh := &Identity{
		ID:                 newIdentityID(),
		Email:              &email,
		Name:               strPtr(claims.Name),
		RegistrationMethod: MethodSocial,
		AccountType:        AccountCodeOnly,
		EmailVerified:      claims.EmailVerified,
		CanLinkEmail:       true,
		CreatedAt:          now,
		LastLogin:          &now,
	}
	ident, created, err := s.createIdentityGuarded(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("social identity created",
			zap.String("identity_id", ident.ID),
			zap.String("provider", claims.Provider))
	}
	session, err := s.IssueSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: ident, Session: session, Created: created}, nil
}
