package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

func (c Command) WithEnv(env ...string) Command {
	c.Env = append(append([]string{}, c.Env...), env...)
	return c
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands on the host, streaming their output into the
// configured writers (normally the transcript).
type ExecRunner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{stdout: stdout, stderr: stderr}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	slog.Info("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	start := time.Now()

	if err := c.Run(); err != nil {
		slog.Error("command failed", "cmd", cmd.String(), "exit_code", ExitCode(err), "duration", time.Since(start), "error", err)
		return fmt.Errorf("command '%s' failed: %w", cmd.String(), err)
	}

	slog.Info("command finished", "cmd", cmd.String(), "duration", time.Since(start))
	return nil
}

// ExitCode extracts the process exit code from an error returned by Run, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
