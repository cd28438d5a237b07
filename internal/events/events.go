// Package events publishes the outcome of every sync run.
package events

import (
	"context"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/config"
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks -source=events.go Publisher

// Type identifies the kind of sync outcome
type Type string

// Event types
const (
	TypeSyncCompleted Type = "sync.completed"
	TypeSyncFailed    Type = "sync.failed"
)

// SyncEvent is the final outcome of a triggered sync, after retries
type SyncEvent struct {
	Type           Type          `json:"type"`
	UserID         string        `json:"userId"`
	Attempts       int           `json:"attempts"`
	StatisticsRows int           `json:"statisticsRows"`
	ActivityRows   int           `json:"activityRows"`
	Cursor         *time.Time    `json:"cursor,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"durationNs"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

// Publisher delivers sync events
type Publisher interface {
	Publish(ctx context.Context, event *SyncEvent) error
	Close() error
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, *SyncEvent) error {
	return nil
}

// Close implements Publisher
func (NopPublisher) Close() error {
	return nil
}

// New returns a Kafka publisher when brokers are configured and a
// NopPublisher otherwise
func New(cfg *config.EventsConfig) Publisher {
	if cfg == nil || !cfg.Enabled() {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg.Brokers, cfg.GetTopic())
}
