package core

import (
	"time"

	oidckit "github.com/roomhive/identitykit/oidc"
)

// Config is the high-level configuration consumed by NewService. Zero values
// fall back to the documented defaults.
type Config struct {
	Issuer   string
	Audience string

	// SessionDuration bounds issued session tokens. Default 7 days.
	SessionDuration time.Duration

	// DefaultCountryCode is assumed for national phone numbers. Default "91".
	DefaultCountryCode string

	// One-time-code settings.
	CodeTTL           time.Duration // default 10 minutes
	CodeLength        int           // default 6
	MaxSendsPerWindow int           // default 3
	SendWindow        time.Duration // default 60 minutes
	MaxVerifyFailures int           // default 3

	// AllowLocalFallback permits the fixed-code local delivery strategy.
	// Must be false in any deployment with real users.
	AllowLocalFallback bool

	// Providers holds OIDC relying-party settings by slug ("google", ...).
	Providers map[string]oidckit.RPConfig
}

// Options is Config with defaults resolved; immutable once the service is
// constructed.
type Options struct {
	Issuer             string
	Audience           string
	SessionDuration    time.Duration
	DefaultCountryCode string
	CodeTTL            time.Duration
	CodeLength         int
	MaxSendsPerWindow  int
	SendWindow         time.Duration
	MaxVerifyFailures  int
	AllowLocalFallback bool
	Providers          map[string]oidckit.RPConfig
}

func (c Config) options() Options {
	o := Options{
		Issuer:             c.Issuer,
		Audience:           c.Audience,
		SessionDuration:    c.SessionDuration,
		DefaultCountryCode: c.DefaultCountryCode,
		CodeTTL:            c.CodeTTL,
		CodeLength:         c.CodeLength,
		MaxSendsPerWindow:  c.MaxSendsPerWindow,
		SendWindow:         c.SendWindow,
		MaxVerifyFailures:  c.MaxVerifyFailures,
		AllowLocalFallback: c.AllowLocalFallback,
		Providers:          c.Providers,
	}
	if o.SessionDuration <= 0 {
		o.SessionDuration = 7 * 24 * time.Hour
	}
	if o.DefaultCountryCode == "" {
		o.DefaultCountryCode = "91"
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = 10 * time.Minute
	}
	if o.CodeLength <= 0 {
		o.CodeLength = 6
	}
	if o.MaxSendsPerWindow <= 0 {
		o.MaxSendsPerWindow = 3
	}
	if o.SendWindow <= 0 {
		o.SendWindow = time.Hour
	}
	if o.MaxVerifyFailures <= 0 {
		o.MaxVerifyFailures = 3
	}
	return o
}
