// Package jwtkit wraps token signing and JWKS publishing for the session
// issuer. Signers are immutable once constructed.
package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer signs a claim set into a compact JWT.
type Signer interface {
	Sign(ctx context.Context, claims map[string]any) (string, error)
	KID() string
	Alg() string
}

// HMACSigner signs with HS256. Suitable for single-service deployments where
// the verifier shares the secret.
type HMACSigner struct {
	kid    string
	secret []byte
}

func NewHMACSigner(kid string, secret []byte) *HMACSigner {
	return &HMACSigner{kid: kid, secret: secret}
}

func (s *HMACSigner) KID() string { return s.kid }
func (s *HMACSigner) Alg() string { return "HS256" }

func (s *HMACSigner) Sign(ctx context.Context, claims map[string]any) (string, error) {
	_ = ctx
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	if s.kid != "" {
		tok.Header["kid"] = s.kid
	}
	return tok.SignedString(s.secret)
}

// Secret exposes the shared secret for in-process verification.
func (s *HMACSigner) Secret() []byte { return s.secret }

// RSASigner signs with RS256 and exposes its public key for JWKS.
type RSASigner struct {
	kid string
	key *rsa.PrivateKey
}

func NewRSASigner(kid string, key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{kid: kid, key: key}
}

// NewDevRSASigner generates an in-memory RSA key. Development only; tokens do
// not survive a restart.
func NewDevRSASigner() (*RSASigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate dev signing key: %w", err)
	}
	sum := sha256.Sum256(key.PublicKey.N.Bytes())
	return &RSASigner{kid: hex.EncodeToString(sum[:8]), key: key}, nil
}

func (s *RSASigner) KID() string               { return s.kid }
func (s *RSASigner) Alg() string               { return "RS256" }
func (s *RSASigner) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

func (s *RSASigner) Sign(ctx context.Context, claims map[string]any) (string, error) {
	_ = ctx
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	if s.kid != "" {
		tok.Header["kid"] = s.kid
	}
	return tok.SignedString(s.key)
}
