package identityhttp

import (
	"net/http"

	jwtkit "github.com/roomhive/identitykit/jwt"
)

// handleJWKSGET serves the RS256 verification keys. HS256-only deployments
// get an empty key set.
func (s *Service) handleJWKSGET(w http.ResponseWriter, _ *http.Request) {
	body, err := jwtkit.RenderJWKS(s.svc.PublicKeys())
	if err != nil {
		serverErr(w, "jwks_unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(body)
}
