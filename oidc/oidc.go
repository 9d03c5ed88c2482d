// Package oidckit wires social login providers through standard OIDC
// discovery with PKCE. Providers are identified by slug ("google", ...).
package oidckit

import "context"

// RPConfig holds relying-party settings for one provider.
type RPConfig struct {
	Issuer       string // discovery URL
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Claims is the subset of a verified id-token this kit surfaces.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// StateCache persists the ephemeral state of a pending login between the
// redirect out and the callback. Backed by Redis in the server, memory in
// tests.
type StateCache interface {
	Put(ctx context.Context, state string, data StateData) error
	Get(ctx context.Context, state string) (StateData, bool, error)
	Del(ctx context.Context, state string) error
}

// StateData is everything needed to complete the callback leg.
type StateData struct {
	Provider    string
	Verifier    string
	Nonce       string
	RedirectURI string
}
