// Package kafka publishes task lifecycle events to a Kafka topic with
// segmentio/kafka-go. The Publisher is registered on the in-memory event
// emitter when brokers are configured.
package kafka
