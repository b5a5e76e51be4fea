package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver.
const (
	DriverNoop         = "noop"
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver is returned for a driver name NewFromDriver does not know.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the config of every driver; only the selected one is read.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
}

// NewFromDriver builds the driver named by driver, case-insensitively.
// Empty selects Noop.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	name := strings.ToLower(strings.TrimSpace(driver))

	builders := map[string]func() (Messaging, error){
		"":         func() (Messaging, error) { return NewNoop(), nil },
		DriverNoop: func() (Messaging, error) { return NewNoop(), nil },
		DriverNSQ:  func() (Messaging, error) { return NewNSQ(opts.NSQ) },
		DriverNATS: func() (Messaging, error) { return NewNATS(opts.NATS) },
		DriverKafka: func() (Messaging, error) {
			return NewKafka(opts.Kafka)
		},
		DriverGooglePubSub: func() (Messaging, error) {
			return NewPubSub(ctx, opts.PubSub)
		},
	}

	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return build()
}
