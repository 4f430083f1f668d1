// Package yookassa is a minimal client for the YooKassa payments API.
package yookassa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.yookassa.ru/v3"

// ErrNotConfigured is returned when shop credentials are missing
var ErrNotConfigured = errors.New("yookassa credentials are not configured")

// Client talks to the YooKassa REST API
type Client struct {
	shopID     string
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a new YooKassa client. An empty apiURL selects the production API.
func NewClient(shopID, secretKey, apiURL string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		shopID:     shopID,
		secretKey:  secretKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether shop credentials are set
func (c *Client) Configured() bool {
	return c.shopID != "" && c.secretKey != ""
}

// CreatePayment creates a payment. idempotenceKey makes retries of the same request safe.
func (c *Client) CreatePayment(ctx context.Context, idempotenceKey string, params CreatePaymentRequest) (*Payment, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Idempotence-Key", idempotenceKey)

	var payment Payment
	if err := c.do(req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches a payment by its provider id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var payment Payment
	if err := c.do(req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.shopID + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode yookassa response: %w", err)
	}
	return nil
}
