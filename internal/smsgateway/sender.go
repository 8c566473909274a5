// Package smsgateway sends SMS messages through an HTTP gateway.
package smsgateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sally-https/book-api-v2/internal/config"
)

// Sender calls the gateway's GET endpoint with credentials and the message
// as query parameters.
type Sender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSender(cfg config.SMSConfig) *Sender {
	return &Sender{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Sender) Send(ctx context.Context, phone, message string) error {
	query := url.Values{}
	query.Set("username", s.cfg.Username)
	query.Set("password", s.cfg.Password)
	query.Set("sender", s.cfg.Sender)
	query.Set("recipient", phone)
	query.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building SMS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling SMS gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("SMS gateway returned %d: %s", resp.StatusCode, body)
	}

	return nil
}
