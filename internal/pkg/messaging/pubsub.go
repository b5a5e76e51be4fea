package messaging

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when neither a client nor a project ID is given.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub driver. Client, when set, is
// used as is and ProjectID is ignored.
type PubSubConfig struct {
	ProjectID     string
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub keeps one batching publisher per topic and waits for the server ID
// on every publish.
type PubSub struct {
	guard
	client *pubsub.Client

	pubMu      sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client := cfg.Client
	if client == nil {
		if cfg.ProjectID == "" {
			return nil, ErrPubSubProjectIDRequired
		}

		var err error
		client, err = pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
		if err != nil {
			return nil, fmt.Errorf("messaging: pubsub client: %w", err)
		}
	}
	return &PubSub{client: client, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Publish sends msg. Headers are folded into attributes as strings; an
// explicit attribute wins over a header with the same key.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := p.admit(ctx, destination, msg, false); err != nil {
		return PublishResult{}, err
	}

	attrs := make(map[string]string, len(msg.Headers)+len(msg.Attributes))
	msg.eachHeader(func(key string, value []byte) {
		attrs[key] = string(value)
	})
	maps.Copy(attrs, msg.Attributes)

	id, err := p.publisher(destination).Publish(ctx, &pubsub.Message{Data: msg.Body, Attributes: attrs}).Get(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish to %s: %w", destination, err)
	}
	return sent(destination, id), nil
}

func (p *PubSub) publisher(topic string) *pubsub.Publisher {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	pub, ok := p.publishers[topic]
	if !ok {
		pub = p.client.Publisher(topic)
		p.publishers[topic] = pub
	}
	return pub
}

// Close flushes every publisher, then closes the client.
func (p *PubSub) Close() error {
	if !p.shut() {
		return nil
	}

	p.pubMu.Lock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	clear(p.publishers)
	p.pubMu.Unlock()

	return p.client.Close()
}
