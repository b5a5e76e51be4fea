package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// ErrNSQProducerAddrRequired is returned when the nsqd address is missing.
var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

// NSQConfig configures the NSQ driver. Zero timeouts keep the go-nsq defaults.
type NSQConfig struct {
	ProducerAddr string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// NSQ publishes to a single nsqd. NSQ has no headers, so only Body is sent;
// Delay maps onto a deferred publish.
type NSQ struct {
	guard
	producer *nsq.Producer
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	conf := nsq.NewConfig()
	if cfg.DialTimeout > 0 {
		conf.DialTimeout = cfg.DialTimeout
	}
	if cfg.WriteTimeout > 0 {
		conf.WriteTimeout = cfg.WriteTimeout
	}

	producer, err := nsq.NewProducer(cfg.ProducerAddr, conf)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelError)
	return &NSQ{producer: producer}, nil
}

func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := n.admit(ctx, destination, msg, true); err != nil {
		return PublishResult{}, err
	}

	var err error
	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(destination, msg.Delay, msg.Body)
	} else {
		err = n.producer.Publish(destination, msg.Body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish to %s: %w", destination, err)
	}
	return sent(destination, ""), nil
}

func (n *NSQ) Close() error {
	if n.shut() {
		n.producer.Stop()
	}
	return nil
}
