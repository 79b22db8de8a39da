package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	BootstrapEventsQueue = "bootstrap_events"
	RetryDelay           = 5 * time.Second
	MaxConnectRetry      = 5
)

const (
	EventStarted      = "STARTED"
	EventStepFinished = "STEP_FINISHED"
	EventFinished     = "FINISHED"
)

type BootstrapEvent struct {
	RunId     uuid.UUID `json:"run_id"`
	Host      string    `json:"host"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type Publisher interface {
	PublishBootstrapEvent(ctx context.Context, event BootstrapEvent) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBootstrapEvent(ctx context.Context, event BootstrapEvent) error {
	return nil
}

func (NoopPublisher) Close() {}
