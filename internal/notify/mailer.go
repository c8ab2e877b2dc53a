package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultProviderURL = "https://api.resend.com/emails"

var ErrMissingAPIKey = errors.New("missing RESEND_API_KEY in environment variables")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer hands messages to an email provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) (id string, err error)
}

// ProviderError carries the provider's raw response for a rejected send.
type ProviderError struct {
	Status  int
	Payload json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider returned status %d: %s", e.Status, string(e.Payload))
}

// ResendMailer talks to the Resend HTTP API.
type ResendMailer struct {
	Endpoint string
	APIKey   string
	From     string
	ReplyTo  string
	Client   *http.Client
}

func NewResendMailer(endpoint, apiKey, from, replyTo string, timeout time.Duration) *ResendMailer {
	if endpoint == "" {
		endpoint = DefaultProviderURL
	}
	return &ResendMailer{
		Endpoint: endpoint,
		APIKey:   apiKey,
		From:     from,
		ReplyTo:  replyTo,
		Client:   &http.Client{Timeout: timeout},
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if m.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(resendPayload{
		From:    m.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: m.ReplyTo,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload := json.RawMessage(raw)
		if !json.Valid(raw) {
			payload, _ = json.Marshal(string(raw))
		}
		return "", &ProviderError{Status: resp.StatusCode, Payload: payload}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	return result.ID, nil
}
