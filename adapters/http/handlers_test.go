package identityhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomhive/identitykit/core"
	jwtkit "github.com/roomhive/identitykit/jwt"
	memorystore "github.com/roomhive/identitykit/storage/memory"
)

type fixedStrategy struct{}

func (fixedStrategy) Name() string                               { return "local" }
func (fixedStrategy) IsConfigured() bool                         { return true }
func (fixedStrategy) FixedCode() string                          { return "000000" }
func (fixedStrategy) Send(context.Context, string, string) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	signer := jwtkit.NewHMACSigner("hs-test", []byte("test-secret-test-secret-test-1234"))
	svc := core.NewService(core.Config{
		Issuer:             "http://identity.test",
		Audience:           "roomhive-test",
		AllowLocalFallback: true,
	}, memorystore.NewIdentityStore(), memorystore.NewAttemptStore(), signer).
		WithCodeProviders(fixedStrategy{})
	return NewService(svc)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, r)
	return w
}

func TestRegister_CreatesAccount(t *testing.T) {
	h := newTestService(t).APIHandler()

	w := postJSON(t, h, "/auth/register",
		`{"name":"Asha","email":"asha@example.com","password":"password123","phone":"+919876543210"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token    string `json:"token"`
		Created  bool   `json:"created"`
		Identity struct {
			Email       *string `json:"email"`
			Phone       *string `json:"phone"`
			AccountType string  `json:"account_type"`
		} `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.True(t, resp.Created)
	require.Equal(t, "asha@example.com", *resp.Identity.Email)
	require.Equal(t, "+919876543210", *resp.Identity.Phone)
	require.Equal(t, "password_only", resp.Identity.AccountType)
}

func TestRegister_MissingFields(t *testing.T) {
	h := newTestService(t).APIHandler()
	w := postJSON(t, h, "/auth/register", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"missing_fields"}`, w.Body.String())
}

func TestRegister_ConflictOnUnifiedAccount(t *testing.T) {
	h := newTestService(t).APIHandler()

	w := postJSON(t, h, "/auth/register",
		`{"email":"asha@example.com","password":"password123","phone":"+919876543210"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Promote to unified via OTP verification, then re-register.
	w = postJSON(t, h, "/auth/otp/request", `{"phone":"+919876543210"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = postJSON(t, h, "/auth/otp/verify", `{"phone":"+919876543210","code":"000000"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, h, "/auth/register",
		`{"email":"asha@example.com","password":"password456"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":"account_exists_login_instead"}`, w.Body.String())
}

func TestLogin_Succeeds(t *testing.T) {
	h := newTestService(t).APIHandler()
	postJSON(t, h, "/auth/register", `{"email":"a@example.com","password":"password123"}`)

	w := postJSON(t, h, "/auth/login", `{"email":"a@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestService(t).APIHandler()
	postJSON(t, h, "/auth/register", `{"email":"a@example.com","password":"password123"}`)

	w := postJSON(t, h, "/auth/login", `{"email":"a@example.com","password":"wrongpass1"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid_credentials"}`, w.Body.String())
}

func TestOTPFlow_CreatesCodeOnlyAccount(t *testing.T) {
	h := newTestService(t).APIHandler()

	w := postJSON(t, h, "/auth/otp/request", `{"phone":"9876543210"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var sent struct {
		Sent     bool   `json:"sent"`
		Provider string `json:"provider"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	require.True(t, sent.Sent)
	require.Equal(t, "local", sent.Provider)

	w = postJSON(t, h, "/auth/otp/verify", `{"phone":"9876543210","code":"000000"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Identity struct {
			Phone         *string `json:"phone"`
			AccountType   string  `json:"account_type"`
			PhoneVerified bool    `json:"phone_verified"`
		} `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "+919876543210", *resp.Identity.Phone)
	require.Equal(t, "code_only", resp.Identity.AccountType)
	require.True(t, resp.Identity.PhoneVerified)
}

func TestOTPVerify_WrongCode(t *testing.T) {
	h := newTestService(t).APIHandler()
	postJSON(t, h, "/auth/otp/request", `{"phone":"9876543210"}`)

	w := postJSON(t, h, "/auth/otp/verify", `{"phone":"9876543210","code":"111111"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid_or_expired_code"}`, w.Body.String())
}

func TestOTPRequest_RateLimitedWithRetryAfter(t *testing.T) {
	h := newTestService(t).APIHandler()
	for i := 0; i < 3; i++ {
		w := postJSON(t, h, "/auth/otp/request", `{"phone":"9876543210"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(t, h, "/auth/otp/request", `{"phone":"9876543210"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestJWKS_EmptyForHMACDeployment(t *testing.T) {
	h := newTestService(t).APIHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"keys":[]}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	h := newTestService(t).APIHandler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
