package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Intent is the gateway-side payment intent as this engine sees it.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	LastError    string
}

// Client talks to the external payment gateway. All calls are bounded by
// the configured timeout; the gateway is the only slow network hop in the
// engine.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type intentWire struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	LastError    *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (w intentWire) intent() Intent {
	it := Intent{ID: w.ID, ClientSecret: w.ClientSecret, Status: w.Status}
	if w.LastError != nil {
		it.LastError = w.LastError.Message
	}
	return it
}

// CreateIntent opens a payment intent for the given amount. On failure the
// caller keeps its Payment row pending and may retry.
func (c *Client) CreateIntent(ctx context.Context, amountCents int, currency string) (Intent, error) {
	body, _ := json.Marshal(map[string]any{
		"amount":   amountCents,
		"currency": currency,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return Intent{}, err
	}
	return c.do(req)
}

// GetIntent fetches the current gateway state of an intent; used by the
// explicit reconciliation call when no webhook arrived.
func (c *Client) GetIntent(ctx context.Context, intentID string) (Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return Intent{}, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (Intent, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, fmt.Errorf("gateway: unexpected status %d", resp.StatusCode)
	}
	var w intentWire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Intent{}, fmt.Errorf("gateway: decode response: %w", err)
	}
	return w.intent(), nil
}
