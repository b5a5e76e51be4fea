package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS publishes with core NATS and flushes so a publish error surfaces to
// the caller. A message Key is sent as Nats-Msg-Id, which JetStream streams
// use for duplicate detection.
type NATS struct {
	guard
	conn *nats.Conn
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect %s: %w", cfg.URL, err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := n.admit(ctx, destination, msg, false); err != nil {
		return PublishResult{}, err
	}

	out := &nats.Msg{Subject: destination, Data: msg.Body, Header: nats.Header{}}
	msg.eachHeader(func(key string, value []byte) {
		out.Header.Add(key, string(value))
	})
	if len(msg.Key) > 0 {
		out.Header.Set(nats.MsgIdHdr, string(msg.Key))
	}

	if err := n.conn.PublishMsg(out); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish to %s: %w", destination, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}
	return sent(destination, ""), nil
}

// Close drains in-flight messages before closing the connection.
func (n *NATS) Close() error {
	if !n.shut() {
		return nil
	}
	defer n.conn.Close()
	return n.conn.Drain()
}
