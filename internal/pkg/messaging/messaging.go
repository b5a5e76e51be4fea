package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported marks a message feature the selected broker cannot honour,
	// such as delayed delivery on Kafka.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when Publish gets an empty topic or subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = io.ErrClosedPipe
)

// Messaging publishes messages and owns the broker connection.
type Messaging interface {
	Publisher
	io.Closer
}

// Publisher sends one message to a topic or subject.
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is the broker-neutral envelope handed to Publish.
//
// Brokers map the fields they understand and ignore the rest: Kafka uses Key
// for partitioning, NATS sends Key as the JetStream dedupe ID, Pub/Sub only
// carries string Attributes, and only NSQ honours Delay.
type OutgoingMessage struct {
	Body       []byte
	Key        []byte
	Headers    []Header
	Attributes map[string]string
	Delay      time.Duration
}

// Header is a binary message header. Duplicate keys are allowed.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult is what the broker reported back, if anything.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func (m OutgoingMessage) eachHeader(fn func(key string, value []byte)) {
	for _, h := range m.Headers {
		if h.Key != "" {
			fn(h.Key, h.Value)
		}
	}
}
