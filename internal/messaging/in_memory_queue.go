package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type inMemoryTask struct {
	queue   string
	payload []byte
}

func (t *inMemoryTask) Type() string {
	return t.queue
}

func (t *inMemoryTask) Payload() []byte {
	return t.payload
}

func (t *inMemoryTask) Ack() error {
	return nil
}

func (t *inMemoryTask) Nack() error {
	return nil
}

func (t *inMemoryTask) Reject() error {
	return nil
}

type InMemoryQueue struct {
	mu     sync.Mutex
	tasks  chan Task
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make(chan Task, 100),
	}
}

func (q *InMemoryQueue) publishTaskInternal(queue string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("in memory queue is closed")
	}

	select {
	case q.tasks <- &inMemoryTask{queue: queue, payload: data}:
		return nil
	default:
		return fmt.Errorf("in memory queue is full")
	}
}

func (q *InMemoryQueue) PublishBootstrapEvent(ctx context.Context, event BootstrapEvent) error {
	return q.publishTaskInternal(BootstrapEventsQueue, event)
}

func (q *InMemoryQueue) Tasks() <-chan Task {
	return q.tasks
}

func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.tasks)
		q.closed = true
	}
}

// Events drains the queue and decodes every bootstrap event published so far.
func (q *InMemoryQueue) Events() ([]BootstrapEvent, error) {
	var events []BootstrapEvent
	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return events, nil
			}
			var event BootstrapEvent
			if err := json.Unmarshal(task.Payload(), &event); err != nil {
				return nil, fmt.Errorf("error decoding bootstrap event: %w", err)
			}
			events = append(events, event)
		default:
			return events, nil
		}
	}
}
