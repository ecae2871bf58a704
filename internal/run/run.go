// Package run wraps process execution for the git and tmux collaborators.
// All calls are synchronous; the caller waits for the child to exit.
package run

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command runs a command and waits for it to exit, discarding output.
// Returns the child's error (including non-zero exit) unchanged.
func Command(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Run()
}

// Quick runs a command and returns trimmed stdout. Any failure, including
// a missing binary, yields an empty string.
func Quick(name string, args ...string) string {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}

// QuickIn is Quick with the child's working directory set.
func QuickIn(dir, name string, args ...string) string {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}

// Capture runs a command and returns trimmed stdout, surfacing the error
// with stderr attached for callers that need to distinguish failure modes.
func Capture(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Interactive runs a command attached to the current terminal and blocks
// until it exits. Used for tmux attach, where the child owns the TTY.
func Interactive(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// InPath reports whether a binary is discoverable on PATH.
func InPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
