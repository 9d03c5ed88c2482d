package identityhttp

import (
	"time"

	"github.com/roomhive/identitykit/core"
)

type identityView struct {
	ID            string  `json:"id"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Name          *string `json:"name"`
	Role          string  `json:"role,omitempty"`
	AccountType   string  `json:"account_type"`
	EmailVerified bool    `json:"email_verified"`
	PhoneVerified bool    `json:"phone_verified"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Created   bool         `json:"created"`
	Linked    bool         `json:"linked"`
	Identity  identityView `json:"identity"`
}

func toAuthResponse(res *core.AuthResult) authResponse {
	return authResponse{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Created:   res.Created,
		Linked:    res.Linked,
		Identity: identityView{
			ID:            res.Identity.ID,
			Email:         res.Identity.Email,
			Phone:         res.Identity.Phone,
			Name:          res.Identity.Name,
			Role:          res.Identity.Role,
			AccountType:   string(res.Identity.AccountType),
			EmailVerified: res.Identity.EmailVerified,
			PhoneVerified: res.Identity.PhoneVerified,
		},
	}
}
