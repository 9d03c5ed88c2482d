package identityhttp

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"

	"github.com/roomhive/identitykit/core"
	oidckit "github.com/roomhive/identitykit/oidc"
)

func randToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// handleOIDCLoginGET starts the social login redirect: persists state, nonce
// and PKCE verifier, then sends the user to the provider.
func (s *Service) handleOIDCLoginGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		tooMany(w)
		return
	}
	provider := r.PathValue("provider")
	if _, ok := s.oidc.Provider(provider); !ok {
		badRequest(w, "unknown_provider")
		return
	}

	state := randToken()
	nonce := randToken()
	verifier, challenge, err := oidckit.GeneratePKCE()
	if err != nil {
		serverErr(w, "pkce_failed")
		return
	}
	if err := s.states.Put(r.Context(), state, oidckit.StateData{
		Provider:    provider,
		Verifier:    verifier,
		Nonce:       nonce,
		RedirectURI: s.callbackURL,
	}); err != nil {
		s.log.Error("oidc state persist failed", zap.Error(err))
		serverErr(w, "state_unavailable")
		return
	}

	authURL, err := s.oidc.Begin(r.Context(), provider, state, nonce, challenge, s.callbackURL)
	if err != nil {
		s.log.Error("oidc auth url failed", zap.String("provider", provider), zap.Error(err))
		serverErr(w, "provider_unavailable")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleOIDCCallbackGET completes the login: redeems the one-time state,
// exchanges the code with the PKCE verifier, and hands the verified claims to
// the core.
func (s *Service) handleOIDCCallbackGET(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		badRequest(w, "invalid_callback")
		return
	}

	data, ok, err := s.states.Get(r.Context(), state)
	if err != nil || !ok {
		unauthorized(w, "unknown_state")
		return
	}
	_ = s.states.Del(r.Context(), state)

	rpClient, err := s.oidc.RelyingParty(r.Context(), data.Provider, data.RedirectURI)
	if err != nil {
		serverErr(w, "provider_unavailable")
		return
	}
	claims, err := oidckit.Exchange(r.Context(), rpClient, code, data.Verifier, data.Nonce)
	if err != nil {
		s.log.Warn("oidc exchange failed", zap.String("provider", data.Provider), zap.Error(err))
		unauthorized(w, "exchange_failed")
		return
	}

	res, err := s.svc.SocialLogin(r.Context(), core.SocialClaims{
		Provider:      data.Provider,
		Subject:       claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	})
	if err != nil {
		s.writeCoreError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toAuthResponse(res))
}
