// Package sms implements the code-delivery strategies the identity core
// chains together: a remote-validated Twilio Verify client, a direct Vonage
// SMS client, and a fixed-code local fallback for development.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioVerifyBase = "https://verify.twilio.com/v2/Services"

// TwilioVerify delivers and validates codes through the Twilio Verify API.
// Twilio generates the code; this process never sees its value and delegates
// checking back to the API.
type TwilioVerify struct {
	accountSID string
	authToken  string
	serviceSID string
	httpc      *http.Client
}

func NewTwilioVerify(accountSID, authToken, serviceSID string) *TwilioVerify {
	return &TwilioVerify{
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		httpc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client. Tests only.
func (t *TwilioVerify) WithHTTPClient(c *http.Client) *TwilioVerify {
	if c != nil {
		t.httpc = c
	}
	return t
}

func (t *TwilioVerify) Name() string { return "twilio_verify" }

func (t *TwilioVerify) IsConfigured() bool {
	return t.accountSID != "" && t.authToken != "" && t.serviceSID != ""
}

type twilioVerification struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send starts a verification for the phone and returns Twilio's verification
// SID as the attempt reference.
func (t *TwilioVerify) Send(ctx context.Context, phoneNumber string) (string, error) {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Channel", "sms")

	endpoint := fmt.Sprintf("%s/%s/Verifications", twilioVerifyBase, t.serviceSID)
	var out twilioVerification
	if err := t.post(ctx, endpoint, form, &out); err != nil {
		return "", err
	}
	return out.SID, nil
}

// Check asks Twilio whether the submitted code matches the pending
// verification. A definitive "no" is not an error.
func (t *TwilioVerify) Check(ctx context.Context, phoneNumber, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Code", code)

	endpoint := fmt.Sprintf("%s/%s/VerificationCheck", twilioVerifyBase, t.serviceSID)
	var out twilioVerification
	if err := t.post(ctx, endpoint, form, &out); err != nil {
		return false, err
	}
	return out.Status == "approved", nil
}

func (t *TwilioVerify) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr twilioError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("twilio verify: status %d code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("twilio verify: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
