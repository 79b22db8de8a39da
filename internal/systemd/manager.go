package systemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager installs unit files and activates them through a Controller.
type Manager struct {
	controller Controller
	unitDir    string
}

func NewManager(controller Controller, unitDir string) *Manager {
	return &Manager{controller: controller, unitDir: unitDir}
}

func (m *Manager) UnitPath(u Unit) string {
	return filepath.Join(m.unitDir, u.FileName())
}

type InstallResult string

const (
	UnitCreated   InstallResult = "created"
	UnitUpdated   InstallResult = "updated"
	UnitUnchanged InstallResult = "unchanged"
)

// Install writes the unit file to its fixed path unless the file on disk
// already defines the same settings, so repeated runs never accumulate units.
func (m *Manager) Install(u Unit) (InstallResult, error) {
	content, err := u.Render()
	if err != nil {
		return "", err
	}

	path := m.UnitPath(u)
	result := UnitCreated

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && u.Matches(existing):
		slog.Info("unit file unchanged", "path", path)
		return UnitUnchanged, nil
	case err == nil:
		result = UnitUpdated
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("error reading existing unit %s: %w", path, err)
	}

	if err := os.MkdirAll(m.unitDir, 0755); err != nil {
		return "", fmt.Errorf("error creating unit directory %s: %w", m.unitDir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return "", fmt.Errorf("error writing unit %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return "", fmt.Errorf("error moving unit into place %s: %w", path, err)
	}

	slog.Info("unit file written", "path", path, "result", result)
	return result, nil
}

// Activate reloads the unit database, enables the unit at boot and starts
// it. With restart set a running service is restarted instead, so a new unit
// definition, application or dependency set takes effect.
func (m *Manager) Activate(ctx context.Context, u Unit, restart bool) error {
	if err := m.controller.Reload(ctx); err != nil {
		return fmt.Errorf("error reloading systemd: %w", err)
	}

	if err := m.controller.Enable(ctx, u.FileName(), m.UnitPath(u)); err != nil {
		return fmt.Errorf("error enabling %s: %w", u.FileName(), err)
	}

	if restart {
		if err := m.controller.Restart(ctx, u.FileName()); err != nil {
			return fmt.Errorf("error restarting %s: %w", u.FileName(), err)
		}
		return nil
	}

	if err := m.controller.Start(ctx, u.FileName()); err != nil {
		return fmt.Errorf("error starting %s: %w", u.FileName(), err)
	}
	return nil
}

// LogStatus writes the unit's status into the transcript. It is purely
// informational.
func (m *Manager) LogStatus(ctx context.Context, u Unit) error {
	if err := m.controller.Status(ctx, u.FileName()); err != nil {
		return fmt.Errorf("error querying status of %s: %w", u.FileName(), err)
	}
	return nil
}
