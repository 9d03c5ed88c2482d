// Package identityhttp exposes the identity core over a JSON HTTP API. One
// file per endpoint; the Service here is transport wiring only.
package identityhttp

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/roomhive/identitykit/core"
	oidckit "github.com/roomhive/identitykit/oidc"
)

// RateLimiter is the per-client request limiter the adapter consults before
// touching the core. A nil limiter disables transport limiting; the per-phone
// send budget in the core still applies.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Service struct {
	svc      *core.Service
	oidc     *oidckit.Manager
	states   oidckit.StateCache
	limiter  RateLimiter
	clientIP ClientIPFunc
	log      *zap.Logger

	// callbackURL is the absolute redirect URI registered with every OIDC
	// provider.
	callbackURL string
}

func NewService(svc *core.Service) *Service {
	return &Service{
		svc:      svc,
		clientIP: DefaultClientIP(),
		log:      zap.NewNop(),
	}
}

// WithOIDC attaches the social-login manager, its state cache, and the
// registered callback URL.
func (s *Service) WithOIDC(m *oidckit.Manager, states oidckit.StateCache, callbackURL string) *Service {
	s.oidc = m
	s.states = states
	s.callbackURL = callbackURL
	return s
}

// WithRateLimiter attaches a per-client request limiter.
func (s *Service) WithRateLimiter(l RateLimiter) *Service {
	s.limiter = l
	return s
}

// WithClientIP overrides how the client key for rate limiting is derived.
func (s *Service) WithClientIP(fn ClientIPFunc) *Service {
	if fn != nil {
		s.clientIP = fn
	}
	return s
}

func (s *Service) WithLogger(log *zap.Logger) *Service {
	if log != nil {
		s.log = log
	}
	return s
}

// APIHandler serves the JSON API routes. It is intended to be mounted under
// the host's mux at any prefix.
func (s *Service) APIHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /auth/register", http.HandlerFunc(s.handleRegisterPOST))
	mux.Handle("POST /auth/login", http.HandlerFunc(s.handleLoginPOST))
	mux.Handle("POST /auth/otp/request", http.HandlerFunc(s.handleOTPRequestPOST))
	mux.Handle("POST /auth/otp/verify", http.HandlerFunc(s.handleOTPVerifyPOST))

	if s.oidc != nil {
		mux.Handle("GET /auth/oidc/{provider}/login", http.HandlerFunc(s.handleOIDCLoginGET))
		mux.Handle("GET /auth/oidc/callback", http.HandlerFunc(s.handleOIDCCallbackGET))
	}

	mux.Handle("GET /.well-known/jwks.json", http.HandlerFunc(s.handleJWKSGET))
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	return mux
}

// allow consults the rate limiter for the request's client key. Unknown
// clients and limiter errors fail open.
func (s *Service) allow(r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	key := s.clientIP(r)
	if key == "" {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), key)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	return ok
}
