package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const senderTimeout = 15 * time.Second

// HTTPSender pushes outbound texts to a provider gateway over HTTP.
// WhatsApp and Messenger providers both speak this shape through their
// respective gateway deployments.
type HTTPSender struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPSender(endpoint, apiKey string) *HTTPSender {
	return &HTTPSender{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: senderTimeout},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (s *HTTPSender) Send(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{To: to, Body: body})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider send: %w", err)
	}
	defer resp.Body.Close()

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("provider send: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("provider send: status %d: %s", resp.StatusCode, out.Error)
	}
	return out.MessageID, nil
}

// HTTPVoiceDialer asks the voice carrier gateway to place a call and
// report the transcript back on the callback URL.
type HTTPVoiceDialer struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPVoiceDialer(endpoint, apiKey string) *HTTPVoiceDialer {
	return &HTTPVoiceDialer{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: senderTimeout},
	}
}

type callRequest struct {
	To          string `json:"to"`
	Script      string `json:"script"`
	CallbackURL string `json:"callback_url"`
}

type callResponse struct {
	CallID string `json:"call_id"`
	Error  string `json:"error"`
}

func (d *HTTPVoiceDialer) InitiateCall(ctx context.Context, to, script, callbackURL string) (string, error) {
	payload, err := json.Marshal(callRequest{To: to, Script: script, CallbackURL: callbackURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice dial: %w", err)
	}
	defer resp.Body.Close()

	var out callResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voice dial: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("voice dial: status %d: %s", resp.StatusCode, out.Error)
	}
	return out.CallID, nil
}
