// Package notifications delivers request status events to interested
// parties: applicants over Redis channels and external systems over webhooks.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"mfl/internal/models"

	"github.com/redis/go-redis/v9"
)

// StatusEvent is the payload published when a request changes status.
type StatusEvent struct {
	RequestID  uint                 `json:"request_id"`
	Reference  string               `json:"reference"`
	Type       models.RequestType   `json:"type"`
	From       models.RequestStatus `json:"from"`
	To         models.RequestStatus `json:"to"`
	FacilityID *uint                `json:"facility_id,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Notifier publishes status events into Redis channels. A nil client makes
// every publish a no-op, so the workflow runs unchanged without Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// NotifyStatusChange publishes the status change to the submitting user's
// channel and the registry-wide feed. Failures are logged, never returned;
// notification must not fail a committed transition.
func (n *Notifier) NotifyStatusChange(ctx context.Context, request *models.FacilityRequest, previous models.RequestStatus) {
	if n == nil || n.rdb == nil {
		return
	}

	event := StatusEvent{
		RequestID:  request.ID,
		Reference:  request.Reference,
		Type:       request.RequestType,
		From:       previous,
		To:         request.Status,
		FacilityID: request.FacilityID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal status event", "request_id", request.ID, "err", err)
		return
	}

	for _, channel := range []string{UserChannel(request.RequestedByUserID), RequestsChannel} {
		if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			slog.WarnContext(ctx, "failed to publish status event",
				"channel", channel, "request_id", request.ID, "err", err)
		}
	}
}

// RequestsChannel carries every status change for registry-wide consumers.
const RequestsChannel = "requests:events"

// UserChannel derives the Redis channel name for a user's own requests.
func UserChannel(userID uint) string {
	return "requests:user:" + strconv.FormatUint(uint64(userID), 10)
}
