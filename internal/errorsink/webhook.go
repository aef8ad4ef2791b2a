// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package errorsink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
)

// WebhookConfig configures the error webhook forwarder.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Timeout time.Duration     `json:"timeout"`

	// BreakerFailureThreshold is the number of consecutive delivery
	// failures before the circuit opens. Default: 5.
	BreakerFailureThreshold uint32 `json:"breaker_failure_threshold"`

	// BreakerTimeout is how long the circuit stays open. Default: 30s.
	BreakerTimeout time.Duration `json:"breaker_timeout"`
}

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// WebhookForwarder posts reported errors to an ops endpoint. Deliveries go
// through a circuit breaker so a dead endpoint cannot stall reporting.
type WebhookForwarder struct {
	url     string
	headers map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewWebhookForwarder creates a forwarder for the given config.
func NewWebhookForwarder(cfg WebhookConfig) *WebhookForwarder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	failureThreshold := cfg.BreakerFailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout == 0 {
		breakerTimeout = 30 * time.Second
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &WebhookForwarder{
		url:     cfg.URL,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "error-webhook",
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failureThreshold
			},
		}),
	}
}

// Handler returns a sink Handler that logs the error and forwards it to
// the webhook endpoint. Delivery runs on a separate goroutine so the
// reporting path never blocks on HTTP.
func (f *WebhookForwarder) Handler() Handler {
	return func(err error) {
		defaultHandler(err)
		go f.deliver(err)
	}
}

func (f *WebhookForwarder) deliver(reported error) {
	_, err := f.breaker.Execute(func() (any, error) {
		return nil, f.post(reported)
	})
	switch {
	case err == nil:
		metrics.ErrorWebhookDeliveries.WithLabelValues("ok").Inc()
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.ErrorWebhookDeliveries.WithLabelValues("breaker_open").Inc()
	default:
		metrics.ErrorWebhookDeliveries.WithLabelValues("failed").Inc()
		logging.Err(err).Msg("error webhook delivery failed")
	}
}

func (f *WebhookForwarder) post(reported error) error {
	payload := WebhookPayload{
		Error:     reported.Error(),
		Timestamp: time.Now().UTC(),
		Source:    "warden",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
