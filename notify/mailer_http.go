package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const signinSubject = "New sign-in to your account"

// HTTPMailer delivers notifications through a JSON mail API. The
// confirmation link is carried both in the body and in an X-Link message
// header so clients can follow it without parsing HTML.
type HTTPMailer struct {
	Endpoint   string
	APIKey     string
	From       string
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

// NewHTTPMailer builds a mailer for the given API endpoint.
func NewHTTPMailer(endpoint, apiKey, from string, log logrus.FieldLogger) *HTTPMailer {
	return &HTTPMailer{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		From:       from,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Log:        log,
	}
}

// Send posts one sign-in notification. It never retries; retry policy
// belongs to the mail backend.
func (m *HTTPMailer) Send(ctx context.Context, p Payload) error {
	if strings.TrimSpace(m.Endpoint) == "" {
		return errors.New("mailer not configured")
	}

	body := map[string]any{
		"from":    m.From,
		"to":      []string{p.Email},
		"subject": signinSubject,
		"html": fmt.Sprintf(
			"<p>A new sign-in to your account was detected.</p><p><a href=%q>Confirm this sign-in</a></p>",
			p.Link,
		),
		"text": fmt.Sprintf("A new sign-in to your account was detected. Confirm: %s", p.Link),
		"headers": map[string]string{
			"X-Link":    p.Link,
			"X-Service": p.Service,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail dispatch failed with status %d", resp.StatusCode)
	}

	if m.Log != nil {
		m.Log.WithFields(logrus.Fields{
			"service": p.Service,
			"reason":  p.Reason,
			"cid":     p.CorrelationID,
		}).Debug("sign-in notification dispatched")
	}
	return nil
}
