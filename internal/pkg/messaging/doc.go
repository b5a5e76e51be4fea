// Package messaging publishes messages to a broker without tying callers to
// one vendor. NATS, Kafka, NSQ and Google Pub/Sub are supported, plus a Noop
// publisher used when no broker is configured.
package messaging
