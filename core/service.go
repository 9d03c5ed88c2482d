package core

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	jwtkit "github.com/roomhive/identitykit/jwt"
	"github.com/roomhive/identitykit/phone"
)

// CodeStrategy is one entry in the ordered code-delivery chain. Strategies
// are capability-checked at request time; an unconfigured strategy counts as
// a chain failure.
type CodeStrategy interface {
	Name() string
	IsConfigured() bool
}

// RemoteCodeStrategy delegates code generation and validation to the
// provider; this system never learns the code value.
type RemoteCodeStrategy interface {
	CodeStrategy
	Send(ctx context.Context, phoneNumber string) (reference string, err error)
	Check(ctx context.Context, phoneNumber, code string) (bool, error)
}

// DirectCodeStrategy delivers a caller-generated code.
type DirectCodeStrategy interface {
	CodeStrategy
	Send(ctx context.Context, phoneNumber, code string) error
}

// FixedCodeStrategy always issues the same well-known code. The local dev
// fallback is the only implementation; it is gated by AllowLocalFallback.
type FixedCodeStrategy interface {
	DirectCodeStrategy
	FixedCode() string
}

// Service is the identity core used by the HTTP adapters. It holds no mutable
// identity state; everything durable lives in the stores.
type Service struct {
	opts       Options
	identities IdentityStore
	attempts   AttemptStore
	normalizer phone.Normalizer
	chain      []CodeStrategy
	signer     jwtkit.Signer
	publicKeys map[string]*rsa.PublicKey
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the core against its stores. The code-delivery chain and
// logger are attached with the With* builders.
func NewService(cfg Config, identities IdentityStore, attempts AttemptStore, signer jwtkit.Signer) *Service {
	opts := cfg.options()
	return &Service{
		opts:       opts,
		identities: identities,
		attempts:   attempts,
		normalizer: phone.New(opts.DefaultCountryCode),
		signer:     signer,
		log:        zap.NewNop(),
		now:        time.Now,
	}
}

// Options exposes immutable configuration for callers that validate claims.
func (s *Service) Options() Options { return s.opts }

// WithCodeProviders sets the ordered delivery chain. Strategies are tried
// strictly in the given order.
func (s *Service) WithCodeProviders(strategies ...CodeStrategy) *Service {
	s.chain = strategies
	return s
}

// WithLogger attaches a structured logger.
func (s *Service) WithLogger(log *zap.Logger) *Service {
	if log != nil {
		s.log = log
	}
	return s
}

// WithPublicKeys registers verification keys served via JWKS (RS256 only).
func (s *Service) WithPublicKeys(keys map[string]*rsa.PublicKey) *Service {
	s.publicKeys = keys
	return s
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// PublicKeys returns the registered verification keys (may be empty for HS256
// deployments).
func (s *Service) PublicKeys() map[string]*rsa.PublicKey { return s.publicKeys }

// --- helpers ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func randInt(max int) int {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	n := int(b[0]) | int(b[1])<<8 | int(b[2])<<16 | int(b[3])<<24
	if n < 0 {
		n = -n
	}
	return n % max
}

// randNumeric generates an n-digit numeric code. Numeric rather than
// alphanumeric: easier to type and compatible with voice delivery.
func randNumeric(n int) string {
	code := make([]byte, n)
	for i := range code {
		code[i] = '0' + byte(randInt(10))
	}
	return string(code)
}

func newIdentityID() string { return uuid.NewString() }

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func boolPtr(b bool) *bool { return &b }
