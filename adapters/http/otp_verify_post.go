package identityhttp

import "net/http"

func (s *Service) handleOTPVerifyPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		tooMany(w)
		return
	}
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Phone == "" || req.Code == "" {
		badRequest(w, "invalid_request")
		return
	}

	res, err := s.svc.VerifyCode(r.Context(), req.Phone, req.Code)
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
