// Package messaging publishes events to a broker without tying callers to it.
//
// Business code depends on Publisher only. The concrete backend (Kafka, NATS,
// NSQ, Google Pub/Sub, a structured log sink or an in-memory recorder) is
// chosen from configuration through NewFromDriver.
package messaging
