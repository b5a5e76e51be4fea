package messaging

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

type flakyPublisher struct {
	failures int
	err      error
	calls    int
	closed   bool
}

func (f *flakyPublisher) Publish(_ context.Context, destination string, _ OutgoingMessage) (PublishResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return PublishResult{}, f.err
	}
	return PublishResult{Topic: destination}, nil
}

func (f *flakyPublisher) Close() error {
	f.closed = true
	return nil
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}
}

func TestRetrying_Publish(t *testing.T) {
	errBroker := errors.New("broker unavailable")

	tests := []struct {
		name      string
		next      *flakyPublisher
		wantErr   error
		wantCalls int
	}{
		{name: "first try", next: &flakyPublisher{}, wantCalls: 1},
		{name: "recovers", next: &flakyPublisher{failures: 2, err: errBroker}, wantCalls: 3},
		{name: "gives up", next: &flakyPublisher{failures: 5, err: errBroker}, wantErr: errBroker, wantCalls: 3},
		{name: "unsupported not retried", next: &flakyPublisher{failures: 5, err: ErrUnsupported}, wantErr: ErrUnsupported, wantCalls: 1},
		{name: "closed not retried", next: &flakyPublisher{failures: 5, err: io.ErrClosedPipe}, wantErr: io.ErrClosedPipe, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			r := NewRetrying(tt.next, fastRetry())

			// Act
			res, err := r.Publish(context.Background(), "audit", OutgoingMessage{Body: []byte("{}")})

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Publish() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil || res.Topic != "audit" {
				t.Fatalf("Publish() = %+v, %v", res, err)
			}
			if tt.next.calls != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", tt.next.calls, tt.wantCalls)
			}
		})
	}
}

func TestRetrying_Close(t *testing.T) {
	next := &flakyPublisher{}
	if err := NewRetrying(next, RetryConfig{}).Close(); err != nil || !next.closed {
		t.Fatalf("Close() = %v, closed = %v", err, next.closed)
	}
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	m, err := NewFromDriver(ctx, "", FactoryOptions{})
	if err != nil {
		t.Fatalf("NewFromDriver(\"\") error = %v", err)
	}
	if _, ok := m.(*Noop); !ok {
		t.Fatalf("NewFromDriver(\"\") = %T, want *Noop", m)
	}

	tests := []struct {
		driver string
		want   error
	}{
		{driver: "rabbit", want: ErrUnknownDriver},
		{driver: DriverKafka, want: ErrKafkaBrokersRequired},
		{driver: DriverNATS, want: ErrNATSURLRequired},
		{driver: DriverNSQ, want: ErrNSQProducerAddrRequired},
		{driver: DriverGooglePubSub, want: ErrPubSubProjectIDRequired},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			if _, err := NewFromDriver(ctx, tt.driver, FactoryOptions{}); !errors.Is(err, tt.want) {
				t.Fatalf("NewFromDriver(%q) error = %v, want %v", tt.driver, err, tt.want)
			}
		})
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop()
	res, err := n.Publish(context.Background(), "audit", OutgoingMessage{})
	if err != nil || res.Topic != "audit" {
		t.Fatalf("Publish() = %+v, %v", res, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Publish(ctx, "audit", OutgoingMessage{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish(canceled) error = %v", err)
	}
}

func TestKafka_ClosedAndValidation(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("NewKafka() error = %v", err)
	}

	if _, err := k.Publish(context.Background(), "", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("Publish(empty topic) error = %v", err)
	}
	if _, err := k.Publish(context.Background(), "t", OutgoingMessage{Delay: time.Second}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Publish(delay) error = %v", err)
	}
	if err := k.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := k.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := k.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Publish(after close) error = %v", err)
	}
}

func TestGuard_Admit(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		destination string
		msg         OutgoingMessage
		delays      bool
		closed      bool
		want        error
	}{
		{name: "ok", ctx: context.Background(), destination: "audit"},
		{name: "canceled", ctx: canceled, destination: "audit", want: context.Canceled},
		{name: "no destination", ctx: context.Background(), want: ErrDestinationRequired},
		{name: "delay unsupported", ctx: context.Background(), destination: "audit", msg: OutgoingMessage{Delay: time.Second}, want: ErrUnsupported},
		{name: "delay supported", ctx: context.Background(), destination: "audit", msg: OutgoingMessage{Delay: time.Second}, delays: true},
		{name: "closed", ctx: context.Background(), destination: "audit", closed: true, want: io.ErrClosedPipe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var g guard
			if tt.closed && !g.shut() {
				t.Fatal("shut() = false on first call")
			}

			// Act
			err := g.admit(tt.ctx, tt.destination, tt.msg, tt.delays)

			// Assert
			if !errors.Is(err, tt.want) {
				t.Fatalf("admit() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOutgoingMessage_EachHeaderSkipsEmptyKeys(t *testing.T) {
	msg := OutgoingMessage{Headers: []Header{{Key: "a", Value: []byte("1")}, {Value: []byte("x")}, {Key: "a", Value: []byte("2")}}}

	var got []string
	msg.eachHeader(func(key string, value []byte) {
		got = append(got, key+"="+string(value))
	})

	if len(got) != 2 || got[0] != "a=1" || got[1] != "a=2" {
		t.Fatalf("eachHeader() = %v", got)
	}
}
