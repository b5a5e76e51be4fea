package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
	topic  string
}

// NewMessaging publishes to topic, or to event.VerifyAttemptDestination when empty.
func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation, topic string) *Messaging {
	if topic == "" {
		topic = event.VerifyAttemptDestination
	}
	return &Messaging{client: client, ins: ins, topic: topic}
}

func (m *Messaging) PublishVerifyAttempt(ctx context.Context, msg entity.VerifyAttempt) error {
	ctx, span := m.ins.Tracer("gate.outbound.mq").Start(ctx, "PublishVerifyAttempt")
	defer span.End()

	body, err := json.Marshal(event.VerifyAttemptMessage{
		ID:         msg.ID,
		Outcome:    string(msg.Outcome),
		Method:     msg.Method,
		Path:       msg.Path,
		RemoteAddr: msg.RemoteAddr,
		At:         msg.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, m.topic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.ID),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
		Attributes: map[string]string{
			keyOfCorrelationID: cID,
			"outcome":          string(msg.Outcome),
		},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
