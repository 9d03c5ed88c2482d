package identityhttp

import "net/http"

func (s *Service) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		tooMany(w)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(w, "invalid_request")
		return
	}

	res, err := s.svc.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}
