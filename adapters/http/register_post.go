package identityhttp

import (
	"net/http"

	"github.com/roomhive/identitykit/core"
)

func (s *Service) handleRegisterPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		tooMany(w)
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
		Bio      string `json:"bio"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "missing_fields")
		return
	}

	res, err := s.svc.RegisterOrLink(r.Context(), core.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
		Bio:      req.Bio,
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
