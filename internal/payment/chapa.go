package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// ChapaConfig configures the Chapa client.
type ChapaConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// ChapaClient implements Provider against the Chapa HTTP API.
type ChapaClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewChapaClient creates a new ChapaClient.
func NewChapaClient(cfg ChapaConfig) *ChapaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ChapaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chapaInitializeRequest struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name,omitempty"`
	PhoneNumber   string            `json:"phone_number,omitempty"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url,omitempty"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Customization map[string]string `json:"customization,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Initialize creates a hosted checkout for req.Reference.
func (c *ChapaClient) Initialize(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	payload := chapaInitializeRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.Phone,
		TxRef:       req.Reference,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Meta:        req.Metadata,
	}
	if req.Title != "" || req.Description != "" {
		payload.Customization = map[string]string{"title": req.Title, "description": req.Description}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout request: %w", err)
	}

	status, resp, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	if status >= 300 || gjson.GetBytes(resp, "status").String() != "success" {
		msg := gjson.GetBytes(resp, "message").String()
		return nil, fmt.Errorf("%w: checkout rejected (HTTP %d): %s", ErrUnavailable, status, msg)
	}

	checkoutURL := gjson.GetBytes(resp, "data.checkout_url").String()
	if checkoutURL == "" {
		return nil, fmt.Errorf("%w: checkout response has no checkout_url", ErrUnavailable)
	}

	return &Checkout{Reference: req.Reference, CheckoutURL: checkoutURL}, nil
}

// Verify returns the provider's status of reference. Anything other than an
// explicit "success" payment status is never reported as success.
func (c *ChapaClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	status, resp, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	v := &Verification{Reference: reference, Status: StatusPending}

	// The provider answers 4xx with status "failed" for references it has
	// no completed record of yet; a payer may still finish checkout.
	if status >= 400 {
		log.Debug().
			Str("reference", reference).
			Int("status", status).
			Str("message", gjson.GetBytes(resp, "message").String()).
			Msg("Payment not verifiable yet")
		return v, nil
	}

	if gjson.GetBytes(resp, "status").String() != "success" {
		return v, nil
	}

	data := gjson.GetBytes(resp, "data")
	switch strings.ToLower(data.Get("status").String()) {
	case "success":
		v.Status = StatusSuccess
	case "failed", "cancelled", "canceled", "reversed":
		v.Status = StatusFailed
	}
	v.Currency = data.Get("currency").String()
	if amt := data.Get("amount"); amt.Exists() {
		if d, err := decimal.NewFromString(amt.String()); err == nil {
			v.Amount = d
		}
	}

	return v, nil
}

// do sends one request. Transport failures, 401s, 5xx responses and a
// missing secret key are reported as ErrUnavailable.
func (c *ChapaClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	if c.secretKey == "" || c.baseURL == "" {
		return 0, nil, fmt.Errorf("%w: provider is not configured", ErrUnavailable)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return 0, nil, fmt.Errorf("%w: authentication failed", ErrUnavailable)
	}
	if resp.StatusCode >= 500 {
		return 0, nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	return resp.StatusCode, data, nil
}
