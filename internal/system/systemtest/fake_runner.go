// Package systemtest provides a recording system.Runner for tests.
package systemtest

import (
	"context"
	"dashboard-bootstrap/internal/system"
	"strings"
	"sync"
)

// FakeRunner records commands instead of running them. Failures are scripted
// by command prefix, e.g. "yum install".
type FakeRunner struct {
	mu       sync.Mutex
	commands []system.Command
	failures map[string]error
	hooks    map[string]func(system.Command)
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{failures: map[string]error{}, hooks: map[string]func(system.Command){}}
}

func (r *FakeRunner) FailOn(prefix string, err error) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[prefix] = err
	return r
}

// OnRun registers a side effect for commands matching prefix, used to mimic
// what the real command would leave on disk.
func (r *FakeRunner) OnRun(prefix string, hook func(system.Command)) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[prefix] = hook
	return r
}

func (r *FakeRunner) Run(ctx context.Context, cmd system.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	var hook func(system.Command)
	var failure error
	line := cmd.String()
	for prefix, h := range r.hooks {
		if strings.HasPrefix(line, prefix) {
			hook = h
		}
	}
	for prefix, err := range r.failures {
		if strings.HasPrefix(line, prefix) {
			failure = err
		}
	}
	r.mu.Unlock()

	if failure != nil {
		return failure
	}
	if hook != nil {
		hook(cmd)
	}
	return nil
}

func (r *FakeRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		lines = append(lines, c.String())
	}
	return lines
}

func (r *FakeRunner) Recorded() []system.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]system.Command{}, r.commands...)
}

var _ system.Runner = (*FakeRunner)(nil)
