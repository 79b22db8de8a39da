package system

import (
	"context"
	"fmt"
	"path/filepath"
)

// PackageManager drives the host's OS package manager (yum, dnf or apt-get).
type PackageManager struct {
	runner Runner
	tool   string
}

func NewPackageManager(runner Runner, tool string) (*PackageManager, error) {
	switch filepath.Base(tool) {
	case "yum", "dnf", "apt-get":
	default:
		return nil, fmt.Errorf("unsupported package manager '%s'", tool)
	}
	return &PackageManager{runner: runner, tool: tool}, nil
}

func (p *PackageManager) isApt() bool {
	return filepath.Base(p.tool) == "apt-get"
}

func (p *PackageManager) command(args ...string) Command {
	cmd := Cmd(p.tool, args...)
	if p.isApt() {
		cmd = cmd.WithEnv("DEBIAN_FRONTEND=noninteractive")
	}
	return cmd
}

// Sync refreshes the package index and installs packages.
func (p *PackageManager) Sync(ctx context.Context, packages []string) error {
	update := p.command("update", "-y")
	if p.isApt() {
		update = p.command("update")
	}

	if err := p.runner.Run(ctx, update); err != nil {
		return fmt.Errorf("error updating package index: %w", err)
	}

	if len(packages) == 0 {
		return nil
	}

	install := p.command(append([]string{"install", "-y"}, packages...)...)
	if err := p.runner.Run(ctx, install); err != nil {
		return fmt.Errorf("error installing system packages: %w", err)
	}

	return nil
}
