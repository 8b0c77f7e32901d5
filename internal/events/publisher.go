package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/logger"
)

const (
	// StreamName is the name of the engine event stream.
	StreamName = "TWIRL"

	// SubjectPrefix is the prefix for all engine event subjects.
	SubjectPrefix = "twirl"
)

// Publisher emits engine events to JetStream. Publishing is best effort: the
// engine's own operations never fail because the event stream is down.
type Publisher struct {
	client *Client
	log    *logger.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, log: log, now: time.Now}
}

// EnsureStream ensures the event stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024, // 1GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Conversation capture and transfer events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event type on a platform.
func EventSubject(platform model.Platform, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, platform, eventType)
}

// Publish emits one event, filling id and timestamp when absent. Errors are
// logged and swallowed; a nil client disables publishing entirely.
func (p *Publisher) Publish(ctx context.Context, event *model.Event) {
	if p.client == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = p.now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	subject := EventSubject(event.Platform, event.Type)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.log.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	p.log.Debug("event published",
		zap.String("subject", subject),
		zap.String("event_id", event.ID),
	)
}

// ConversationSaved emits a conversation_saved event for a merged record.
func (p *Publisher) ConversationSaved(ctx context.Context, rec *model.ConversationRecord) {
	p.Publish(ctx, &model.Event{
		Type:           model.EventTypeConversationSaved,
		Platform:       rec.Platform,
		ConversationID: rec.ID,
		TurnCount:      rec.TurnCount,
	})
}

// PasteDetected emits a paste_detected event.
func (p *Publisher) PasteDetected(ctx context.Context, rec *model.ConversationRecord) {
	p.Publish(ctx, &model.Event{
		Type:           model.EventTypePasteDetected,
		Platform:       rec.Platform,
		ConversationID: rec.ID,
		TurnCount:      rec.TurnCount,
	})
}

// TransferCreated emits a transfer_created event.
func (p *Publisher) TransferCreated(ctx context.Context, slot *model.TransferSlot) {
	p.Publish(ctx, &model.Event{
		Type:     model.EventTypeTransferCreated,
		Platform: slot.TargetPlatform,
	})
}

// TransferConsumed emits a transfer_consumed event.
func (p *Publisher) TransferConsumed(ctx context.Context, slot *model.TransferSlot) {
	p.Publish(ctx, &model.Event{
		Type:     model.EventTypeTransferConsumed,
		Platform: slot.TargetPlatform,
	})
}
