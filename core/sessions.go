package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	jwtkit "github.com/roomhive/identitykit/jwt"
)

// Session is a signed bearer token plus its absolute expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// IssueSession signs a session token for the identity. Claims carry the
// identity id as subject plus whichever of email, phone and role are set.
func (s *Service) IssueSession(ctx context.Context, ident *Identity) (*Session, error) {
	if s.signer == nil {
		return nil, errors.New("identitykit: no token signer configured")
	}
	now := s.now()
	expiresAt := now.Add(s.opts.SessionDuration)
	claims := map[string]any{
		"iss": s.opts.Issuer,
		"sub": ident.ID,
		"aud": s.opts.Audience,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if ident.Email != nil {
		claims["email"] = *ident.Email
	}
	if ident.Phone != nil {
		claims["phone"] = *ident.Phone
	}
	if ident.Role != "" {
		claims["role"] = ident.Role
	}
	token, err := s.signer.Sign(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// SessionClaims is the validated payload of a session token.
type SessionClaims struct {
	Subject   string
	Email     string
	Phone     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifySession parses and validates a session token, then checks the
// issued-at instant against the identity's password history: tokens minted
// before the last password change are rejected even if unexpired.
func (s *Service) VerifySession(ctx context.Context, token string) (*SessionClaims, error) {
	parsed, err := jwt.Parse(token, s.keyFunc,
		jwt.WithIssuer(s.opts.Issuer),
		jwt.WithAudience(s.opts.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"HS256", "RS256"}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidCredentials
	}
	iat, err := mapClaims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, ErrInvalidCredentials
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidCredentials
	}

	ident, err := s.findIdentityByID(ctx, sub)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if ident.PasswordChangedAt != nil && iat.Time.Before(*ident.PasswordChangedAt) {
		return nil, ErrInvalidCredentials
	}

	claims := &SessionClaims{
		Subject:   sub,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Phone, _ = mapClaims["phone"].(string)
	claims.Role, _ = mapClaims["role"].(string)
	return claims, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.Alg() {
	case "HS256":
		hs, ok := s.signer.(*jwtkit.HMACSigner)
		if !ok {
			return nil, fmt.Errorf("token alg %s does not match configured signer", t.Method.Alg())
		}
		return hs.Secret(), nil
	case "RS256":
		kid, _ := t.Header["kid"].(string)
		if pub, ok := s.publicKeys[kid]; ok {
			return pub, nil
		}
		if rs, ok := s.signer.(*jwtkit.RSASigner); ok && (kid == "" || kid == rs.KID()) {
			return rs.PublicKey(), nil
		}
		return nil, fmt.Errorf("no public key for kid %q", kid)
	default:
		return nil, fmt.Errorf("unexpected token alg %s", t.Method.Alg())
	}
}

func (s *Service) findIdentityByID(ctx context.Context, id string) (*Identity, error) {
	matches, err := s.identities.Find(ctx, IdentityQuery{ID: id})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}
