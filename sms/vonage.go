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

const vonageSMSEndpoint = "https://rest.nexmo.com/sms/json"

// Vonage delivers caller-generated codes over plain SMS. The code value is
// produced by the orchestrator and only its digest is stored.
type Vonage struct {
	apiKey    string
	apiSecret string
	from      string
	httpc     *http.Client
}

func NewVonage(apiKey, apiSecret, from string) *Vonage {
	return &Vonage{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		from:      from,
		httpc:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client. Tests only.
func (v *Vonage) WithHTTPClient(c *http.Client) *Vonage {
	if c != nil {
		v.httpc = c
	}
	return v
}

func (v *Vonage) Name() string { return "vonage" }

func (v *Vonage) IsConfigured() bool {
	return v.apiKey != "" && v.apiSecret != "" && v.from != ""
}

type vonageResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func (v *Vonage) Send(ctx context.Context, phoneNumber, code string) error {
	form := url.Values{}
	form.Set("api_key", v.apiKey)
	form.Set("api_secret", v.apiSecret)
	form.Set("from", v.from)
	form.Set("to", strings.TrimPrefix(phoneNumber, "+"))
	form.Set("text", fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vonageSMSEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("vonage: decode response: %w", err)
	}
	if len(out.Messages) == 0 {
		return fmt.Errorf("vonage: empty response")
	}
	if st := out.Messages[0].Status; st != "0" {
		return fmt.Errorf("vonage: status %s: %s", st, out.Messages[0].ErrorText)
	}
	return nil
}
