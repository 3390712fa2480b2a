// Package events defines the outbound domain event contract.
package events

import "context"

// Publisher delivers an encoded event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
