package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Executor abstracts external command execution for testability.
type Executor interface {
	// Run executes binary and returns its stdout. Extra env entries are
	// appended to the process environment.
	Run(ctx context.Context, binary string, args []string, env []string) ([]byte, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, binary string, args []string, env []string) ([]byte, error)

// Run implements Executor.
func (f ExecutorFunc) Run(ctx context.Context, binary string, args []string, env []string) ([]byte, error) {
	return f(ctx, binary, args, env)
}

// CommandExecutor runs commands with os/exec.
type CommandExecutor struct{}

// Run implements Executor. Stderr is folded into the returned error.
func (CommandExecutor) Run(ctx context.Context, binary string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, Wrap(ErrNotFound, "", binary, "binary not found", err)
		}
		if ctx.Err() != nil {
			return nil, Wrap(ErrTimeout, "", binary, "command interrupted", ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w: %s", binary, err, lastLines(stderr.String(), 20))
	}
	return stdout.Bytes(), nil
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// LookPath reports whether binary can be executed.
func LookPath(binary string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Wrap(ErrConfiguration, "", "lookup", "command not configured", nil)
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Wrap(ErrNotFound, "", binary, "binary not found", err)
	}
	return nil
}
