// Package webhook delivers committed engine events to subscriber endpoints
// with signed payloads.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

const (
	headerSignature = "X-Webhook-Signature"
	headerTimestamp = "X-Webhook-Timestamp"
	headerEventID   = "X-Webhook-Event-Id"

	maxResponseBytes = 4096
)

// NotifierConfig tunes the delivery pool and retry policy.
type NotifierConfig struct {
	// MaxConcurrency caps parallel deliveries across all endpoints.
	MaxConcurrency int
	// RequestTimeout bounds a single delivery attempt.
	RequestTimeout time.Duration
	// MaxRetries bounds re-attempts per endpoint per event.
	MaxRetries uint64
	// RetryInterval is the initial backoff between attempts. Zero keeps
	// the backoff package default.
	RetryInterval time.Duration
}

// Notifier fans committed events out to subscribed endpoints. Deliveries
// run on a bounded worker pool so a slow endpoint cannot stall the engine's
// publish path.
type Notifier struct {
	subs   []Subscription
	client *http.Client
	pool   pond.Pool
	cfg    NotifierConfig
	logger *zap.Logger
}

// NewNotifier builds a notifier for a fixed subscription list.
func NewNotifier(subs []Subscription, cfg NotifierConfig, logger *zap.Logger) *Notifier {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Notifier{
		subs:   subs,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		pool:   pond.NewPool(cfg.MaxConcurrency),
		cfg:    cfg,
		logger: logger,
	}
}

// Publish queues the event for delivery to every matching subscription and
// returns immediately.
func (n *Notifier) Publish(_ context.Context, event domain.Event) error {
	for _, sub := range n.subs {
		if !sub.Matches(string(event.Type)) {
			continue
		}
		sub := sub
		n.pool.Submit(func() {
			n.deliver(sub, event)
		})
	}
	return nil
}

// Close waits for in-flight deliveries to finish.
func (n *Notifier) Close() error {
	n.pool.StopAndWait()
	return nil
}

func (n *Notifier) deliver(sub Subscription, event domain.Event) {
	operation := func() error {
		result := n.attempt(sub, event)
		if result.Success {
			return nil
		}
		// 4xx responses will not improve on retry
		if result.StatusCode >= 400 && result.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("endpoint rejected event: %s", result.Error))
		}
		return fmt.Errorf("delivery failed: %s", result.Error)
	}

	expo := backoff.NewExponentialBackOff()
	if n.cfg.RetryInterval > 0 {
		expo.InitialInterval = n.cfg.RetryInterval
	}
	policy := backoff.WithMaxRetries(expo, n.cfg.MaxRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		n.logger.Error("webhook delivery abandoned",
			zap.String("url", sub.URL),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (n *Notifier) attempt(sub Subscription, event domain.Event) DeliveryResult {
	payload, signature, timestamp, err := GenerateSignedPayload(sub.Secret, event)
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}

	req, err := http.NewRequest(http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSignature, signature)
	req.Header.Set(headerTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(headerEventID, event.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryResult{Success: true, StatusCode: resp.StatusCode}
	}
	return DeliveryResult{
		StatusCode: resp.StatusCode,
		Error:      fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
	}
}
