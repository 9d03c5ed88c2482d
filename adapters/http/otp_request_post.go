package identityhttp

import "net/http"

func (s *Service) handleOTPRequestPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		tooMany(w)
		return
	}
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Phone == "" {
		badRequest(w, "invalid_request")
		return
	}

	res, err := s.svc.SendVerificationCode(r.Context(), req.Phone)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sent":               true,
		"provider":           res.Provider,
		"expires_in_seconds": int(res.ExpiresIn.Seconds()),
	})
}
