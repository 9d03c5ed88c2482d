package identityhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/roomhive/identitykit/core"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string)   { sendErr(w, http.StatusBadRequest, code) }
func unauthorized(w http.ResponseWriter, code string) { sendErr(w, http.StatusUnauthorized, code) }
func conflict(w http.ResponseWriter, code string)     { sendErr(w, http.StatusConflict, code) }
func tooMany(w http.ResponseWriter)                   { sendErr(w, http.StatusTooManyRequests, "rate_limited") }
func serverErr(w http.ResponseWriter, code string)    { sendErr(w, http.StatusInternalServerError, code) }

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeCoreError maps the core's error taxonomy onto wire responses. Internal
// detail stays in the log; responses carry stable codes only.
func (s *Service) writeCoreError(w http.ResponseWriter, err error) {
	var (
		validation *core.ValidationError
		rateLimit  *core.RateLimitError
		blocked    *core.LinkingBlockedError
		duplicate  *core.DuplicateAccountError
		integrity  *core.IntegrityFaultError
		provider   *core.ProviderError
	)
	switch {
	case errors.As(err, &validation):
		badRequest(w, "invalid_"+validation.Field)
	case errors.As(err, &rateLimit):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rateLimit.RetryAfter.Seconds())))
		tooMany(w)
	case errors.As(err, &blocked):
		conflict(w, "account_exists_login_instead")
	case errors.As(err, &duplicate):
		conflict(w, duplicate.Field+"_already_linked")
	case errors.Is(err, core.ErrInvalidCredentials):
		unauthorized(w, "invalid_credentials")
	case errors.Is(err, core.ErrInvalidOrExpiredCode):
		unauthorized(w, "invalid_or_expired_code")
	case errors.As(err, &integrity):
		s.log.Error("integrity fault", zap.Error(err))
		serverErr(w, "internal_error")
	case errors.As(err, &provider):
		s.log.Error("provider failure", zap.Error(err))
		sendErr(w, http.StatusBadGateway, "delivery_unavailable")
	default:
		s.log.Error("unhandled core error", zap.Error(err))
		serverErr(w, "internal_error")
	}
}
