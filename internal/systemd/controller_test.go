package systemd

import (
	"context"
	"errors"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/stretchr/testify/assert"
)

func TestWaitJob(t *testing.T) {
	done := make(chan string, 1)
	done <- "done"
	assert.NoError(t, waitJob(context.Background(), "streamlit.service", done))

	failed := make(chan string, 1)
	failed <- "failed"
	assert.ErrorContains(t, waitJob(context.Background(), "streamlit.service", failed), "'failed'")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitJob(ctx, "streamlit.service", make(chan string)), context.Canceled)
}

func TestDBusControllerWithoutBus(t *testing.T) {
	c := &DBusController{connect: func(context.Context) (*dbus.Conn, error) {
		return nil, errors.New("no system bus")
	}}

	err := c.Reload(context.Background())
	assert.ErrorContains(t, err, "error connecting to systemd")
	assert.ErrorContains(t, err, "no system bus")
}
