package systemd

import (
	"context"
	"dashboard-bootstrap/internal/system"
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/dbus"
)

const (
	BackendSystemctl = "systemctl"
	BackendDBus      = "dbus"
)

// Controller drives the service manager. path is the installed unit file.
type Controller interface {
	Reload(ctx context.Context) error
	Enable(ctx context.Context, name, path string) error
	Start(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) error
}

// SystemctlController shells out to systemctl so its output ends up in the
// transcript.
type SystemctlController struct {
	runner    system.Runner
	systemctl string
}

func NewSystemctlController(runner system.Runner) *SystemctlController {
	return &SystemctlController{runner: runner, systemctl: "systemctl"}
}

func (c *SystemctlController) run(ctx context.Context, args ...string) error {
	return c.runner.Run(ctx, system.Cmd(c.systemctl, args...))
}

func (c *SystemctlController) Reload(ctx context.Context) error {
	return c.run(ctx, "daemon-reload")
}

func (c *SystemctlController) Enable(ctx context.Context, name, _ string) error {
	return c.run(ctx, "enable", name)
}

func (c *SystemctlController) Start(ctx context.Context, name string) error {
	return c.run(ctx, "start", name)
}

func (c *SystemctlController) Restart(ctx context.Context, name string) error {
	return c.run(ctx, "restart", name)
}

func (c *SystemctlController) Status(ctx context.Context, name string) error {
	return c.run(ctx, "status", name, "--no-pager")
}

// DBusController talks to systemd over the system bus. Each call opens its
// own connection, the bootstrap only makes a handful of them.
type DBusController struct {
	connect func(ctx context.Context) (*dbus.Conn, error)
}

func NewDBusController() *DBusController {
	return &DBusController{connect: dbus.NewWithContext}
}

func (c *DBusController) with(ctx context.Context, fn func(conn *dbus.Conn) error) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("error connecting to systemd: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (c *DBusController) Reload(ctx context.Context) error {
	return c.with(ctx, func(conn *dbus.Conn) error {
		return conn.ReloadContext(ctx)
	})
}

func (c *DBusController) Enable(ctx context.Context, name, path string) error {
	return c.with(ctx, func(conn *dbus.Conn) error {
		_, changes, err := conn.EnableUnitFilesContext(ctx, []string{path}, false, true)
		if err != nil {
			return err
		}
		for _, change := range changes {
			slog.Info("unit enabled", "unit", name, "type", change.Type, "filename", change.Filename, "destination", change.Destination)
		}
		return nil
	})
}

// waitJob waits for a queued job to finish and fails unless it is done.
func waitJob(ctx context.Context, name string, results <-chan string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-results:
		if result != "done" {
			return fmt.Errorf("job for %s finished with result '%s'", name, result)
		}
		return nil
	}
}

func (c *DBusController) Start(ctx context.Context, name string) error {
	return c.with(ctx, func(conn *dbus.Conn) error {
		results := make(chan string, 1)
		if _, err := conn.StartUnitContext(ctx, name, "replace", results); err != nil {
			return err
		}
		return waitJob(ctx, name, results)
	})
}

func (c *DBusController) Restart(ctx context.Context, name string) error {
	return c.with(ctx, func(conn *dbus.Conn) error {
		results := make(chan string, 1)
		if _, err := conn.RestartUnitContext(ctx, name, "replace", results); err != nil {
			return err
		}
		return waitJob(ctx, name, results)
	})
}

func (c *DBusController) Status(ctx context.Context, name string) error {
	return c.with(ctx, func(conn *dbus.Conn) error {
		props, err := conn.GetUnitPropertiesContext(ctx, name)
		if err != nil {
			return err
		}
		slog.Info("service status", "unit", name, "load_state", props["LoadState"], "active_state", props["ActiveState"], "sub_state", props["SubState"], "main_pid", props["MainPID"])
		return nil
	})
}

// NewController returns the controller for the named backend.
func NewController(backend string, runner system.Runner) (Controller, error) {
	switch backend {
	case "", BackendSystemctl:
		return NewSystemctlController(runner), nil
	case BackendDBus:
		return NewDBusController(), nil
	default:
		return nil, fmt.Errorf("unsupported systemd backend '%s'", backend)
	}
}
