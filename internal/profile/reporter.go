package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/pubsub"
)

// OutcomeTopic is the bus topic every reconciliation outcome is published on.
const OutcomeTopic = "profile.outcome"

// PubSubReporter publishes outcomes on the message bus, where presentation
// layers (the websocket stream, logs) pick them up.
type PubSubReporter struct {
	publisher pubsub.Publisher
}

// NewPubSubReporter creates a reporter backed by publisher.
func NewPubSubReporter(publisher pubsub.Publisher) *PubSubReporter {
	return &PubSubReporter{publisher: publisher}
}

// Report implements Reporter.
func (r *PubSubReporter) Report(ctx context.Context, outcome domain.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return r.publisher.Publish(ctx, pubsub.Message{
		Topic:   OutcomeTopic,
		UserID:  outcome.UserID,
		Payload: payload,
		Metadata: map[string]string{
			"flow":   string(outcome.Flow),
			"status": string(outcome.Status),
		},
	})
}

// DecodeOutcome parses an outcome published by PubSubReporter.
func DecodeOutcome(msg pubsub.Message) (domain.Outcome, error) {
	var out domain.Outcome
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return domain.Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return out, nil
}
