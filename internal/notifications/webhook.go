package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mfl/internal/models"
	"mfl/internal/observability"
	"mfl/internal/repository"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body, keyed
// with the subscription's secret.
const SignatureHeader = "X-MFL-Signature"

// FacilityPublishedEvent is the webhook payload sent when an approved
// request's facility snapshot is committed.
type FacilityPublishedEvent struct {
	Event      string             `json:"event"`
	Reference  string             `json:"reference"`
	Type       models.RequestType `json:"type"`
	Facility   models.Facility    `json:"facility"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// WebhookDispatcher POSTs publish events to every active subscription.
// Delivery is asynchronous and best-effort: a dead endpoint never delays or
// fails an approval.
type WebhookDispatcher struct {
	subscriptions repository.WebhookRepository
	client        *http.Client
}

// NewWebhookDispatcher creates a dispatcher with the given delivery timeout.
func NewWebhookDispatcher(subscriptions repository.WebhookRepository, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		subscriptions: subscriptions,
		client:        &http.Client{Timeout: timeout},
	}
}

// FacilityPublished delivers the publish event to all active subscriptions
// in the background.
func (d *WebhookDispatcher) FacilityPublished(ctx context.Context, facility *models.Facility, request *models.FacilityRequest) {
	if d == nil {
		return
	}

	subs, err := d.subscriptions.ListActive(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load webhook subscriptions", "err", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	event := FacilityPublishedEvent{
		Event:      "facility.published",
		Reference:  request.Reference,
		Type:       request.RequestType,
		Facility:   *facility,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal webhook event", "request_id", request.ID, "err", err)
		return
	}

	for _, sub := range subs {
		go d.deliver(sub, body)
	}
}

func (d *WebhookDispatcher) deliver(sub models.WebhookSubscription, body []byte) {
	req, err := http.NewRequest(http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		observability.WebhookDeliveries.WithLabelValues("error").Inc()
		slog.Error("invalid webhook subscription URL", "subscription", sub.Name, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(sub.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		observability.WebhookDeliveries.WithLabelValues("error").Inc()
		slog.Warn("webhook delivery failed", "subscription", sub.Name, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		observability.WebhookDeliveries.WithLabelValues("delivered").Inc()
		return
	}
	observability.WebhookDeliveries.WithLabelValues("rejected").Inc()
	slog.Warn("webhook endpoint rejected delivery",
		"subscription", sub.Name, "status", resp.StatusCode)
}

// Sign computes the hex HMAC-SHA256 signature for a payload.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
