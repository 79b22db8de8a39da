package integrationtests

import (
	"context"
	"dashboard-bootstrap/internal/messaging"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRabbitMQBootstrapEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	url := setupRabbitMQContainer(t, ctx)

	publisher, err := messaging.NewRabbitMQPublisher(url)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	receiver, err := messaging.NewRabbitMQReceiver(url)
	require.NoError(t, err)
	t.Cleanup(receiver.Close)

	event := messaging.BootstrapEvent{
		RunId:     uuid.New(),
		Host:      "ip-10-0-2-9",
		Type:      messaging.EventFinished,
		Status:    "DEGRADED",
		Message:   "verify: service not ready",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, publisher.PublishBootstrapEvent(ctx, event))

	select {
	case task := <-receiver.Tasks():
		assert.Equal(t, messaging.BootstrapEventsQueue, task.Type())

		var received messaging.BootstrapEvent
		require.NoError(t, json.Unmarshal(task.Payload(), &received))
		assert.Equal(t, event.RunId, received.RunId)
		assert.Equal(t, event.Status, received.Status)
		assert.True(t, event.Timestamp.Equal(received.Timestamp))

		require.NoError(t, task.Ack())
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for bootstrap event")
	}
}
