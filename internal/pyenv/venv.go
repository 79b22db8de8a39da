package pyenv

import (
	"context"
	"dashboard-bootstrap/internal/system"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Env is a virtualenv scoped to the application directory, independent of
// the system-wide site-packages.
type Env struct {
	runner  system.Runner
	python  string
	dir     string
	workDir string
}

func NewEnv(runner system.Runner, python, dir, workDir string) *Env {
	return &Env{runner: runner, python: python, dir: dir, workDir: workDir}
}

func (e *Env) Dir() string {
	return e.dir
}

func (e *Env) Bin(name string) string {
	return filepath.Join(e.dir, "bin", name)
}

func (e *Env) Exists() bool {
	_, err := os.Stat(filepath.Join(e.dir, "pyvenv.cfg"))
	return err == nil
}

// Create builds the virtualenv unless one is already present.
func (e *Env) Create(ctx context.Context) error {
	if e.Exists() {
		slog.Info("virtualenv already exists, skipping creation", "dir", e.dir)
		return nil
	}

	if err := e.runner.Run(ctx, system.Cmd(e.python, "-m", "venv", e.dir).InDir(e.workDir)); err != nil {
		return fmt.Errorf("error creating virtualenv %s: %w", e.dir, err)
	}
	return nil
}

// requirementsStamp records the pins last installed into the virtualenv.
const requirementsStamp = "bootstrap-requirements.txt"

func (e *Env) stampPath() string {
	return filepath.Join(e.dir, requirementsStamp)
}

// Install upgrades pip and installs the pinned requirements. Pins are
// validated before anything is run. It reports whether the installed set
// differs from the previous install.
func (e *Env) Install(ctx context.Context, requirements []string) (bool, error) {
	pins, err := ParsePins(requirements)
	if err != nil {
		return false, err
	}

	if !e.Exists() {
		return false, errors.New("virtualenv does not exist, create it before installing requirements")
	}

	pip := e.Bin("pip")
	if err := e.runner.Run(ctx, system.Cmd(pip, "install", "--upgrade", "pip").InDir(e.workDir)); err != nil {
		return false, fmt.Errorf("error upgrading pip: %w", err)
	}

	lines := make([]string, 0, len(pins))
	for _, pin := range pins {
		lines = append(lines, pin.String())
	}
	stamp := strings.Join(lines, "\n") + "\n"

	previous, err := os.ReadFile(e.stampPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("error reading requirements stamp: %w", err)
	}
	changed := string(previous) != stamp

	if len(pins) > 0 {
		args := append([]string{"install", "--no-input"}, lines...)
		if err := e.runner.Run(ctx, system.Cmd(pip, args...).InDir(e.workDir)); err != nil {
			return false, fmt.Errorf("error installing pinned requirements: %w", err)
		}
	}

	if err := os.WriteFile(e.stampPath(), []byte(stamp), 0644); err != nil {
		return false, fmt.Errorf("error writing requirements stamp: %w", err)
	}

	slog.Info("installed pinned requirements", "count", len(pins), "changed", changed)
	return changed, nil
}
