package oidckit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/zitadel/oidc/v2/pkg/client/rp"
)

// Manager builds relying parties from discovery and constructs authorization
// URLs. Relying parties are rebuilt per request; discovery responses are
// cached by the underlying HTTP client, not here.
type Manager struct {
	providers map[string]RPConfig
}

func NewManager(cfgs map[string]RPConfig) *Manager {
	return &Manager{providers: cfgs}
}

// Provider returns the settings for a provider slug.
func (m *Manager) Provider(name string) (RPConfig, bool) {
	cfg, ok := m.providers[name]
	return cfg, ok
}

// Begin returns the authorization URL for the provider, carrying the given
// state, nonce and S256 code challenge. The caller persists state+verifier
// and redirects the user.
func (m *Manager) Begin(ctx context.Context, provider, state, nonce, codeChallenge, redirectURI string) (string, error) {
	cfg, ok := m.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	rpClient, err := m.rp(ctx, cfg, redirectURI)
	if err != nil {
		return "", err
	}
	opts := []rp.AuthURLOpt{
		rp.AuthURLOpt(rp.WithURLParam("nonce", nonce)),
		rp.WithCodeChallenge(codeChallenge),
		rp.AuthURLOpt(rp.WithURLParam("code_challenge_method", "S256")),
	}
	return rp.AuthURL(state, rpClient, opts...), nil
}

// RelyingParty constructs the relying party for the callback leg.
func (m *Manager) RelyingParty(ctx context.Context, provider, redirectURI string) (rp.RelyingParty, error) {
	cfg, ok := m.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return m.rp(ctx, cfg, redirectURI)
}

func (m *Manager) rp(_ context.Context, cfg RPConfig, redirectURI string) (rp.RelyingParty, error) {
	return rp.NewRelyingPartyOIDC(cfg.Issuer, cfg.ClientID, cfg.ClientSecret, redirectURI, cfg.Scopes)
}

// GeneratePKCE returns a fresh verifier and its S256 challenge.
func GeneratePKCE() (verifier, challenge string, err error) {
	v := make([]byte, 32)
	if _, err = rand.Read(v); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(v)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
