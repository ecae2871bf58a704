// Package tmux wraps the tmux binary for session and pane operations.
package tmux

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wtmux/wtmux/internal/run"
)

// Pane is a single tmux pane within a session.
type Pane struct {
	ID      string
	Index   int
	Command string
	Active  bool
}

// paneSep separates fields in tmux format output. Chosen to never appear
// in pane commands or titles.
const paneSep = "|#|"

// IsInstalled checks if tmux is available on PATH.
func IsInstalled() bool {
	return run.InPath("tmux")
}

// InTmux returns true if the caller is already inside a tmux session.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}

// SessionExists checks if a named session exists.
func SessionExists(name string) bool {
	return run.Command("tmux", "has-session", "-t", name) == nil
}

// ListSessionNames returns the names of all live sessions. A missing
// server or any other failure yields an empty list, never an error:
// "no sessions" is an expected state, not a fault.
func ListSessionNames() []string {
	out, err := run.Capture("tmux", "list-sessions", "-F", "#{session_name}")
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// ListPanes returns all panes in a session with their current commands.
// Returns an error only when the session cannot be listed at all.
func ListPanes(session string) ([]Pane, error) {
	format := fmt.Sprintf("#{pane_id}%[1]s#{pane_index}%[1]s#{pane_current_command}%[1]s#{pane_active}", paneSep)
	out, err := run.Capture("tmux", "list-panes", "-s", "-t", session, "-F", format)
	if err != nil {
		return nil, err
	}

	var panes []Pane
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, paneSep)
		if len(parts) < 4 {
			continue
		}
		index, _ := strconv.Atoi(parts[1])
		panes = append(panes, Pane{
			ID:      parts[0],
			Index:   index,
			Command: parts[2],
			Active:  parts[3] == "1",
		})
	}
	return panes, nil
}

// NewSession creates a detached session rooted at the given directory.
func NewSession(name, directory string) error {
	return run.Command("tmux", "new-session", "-d", "-s", name, "-c", directory)
}

// SendKeys types a command into a pane target and presses enter.
func SendKeys(target, keys string) error {
	if err := run.Command("tmux", "send-keys", "-t", target, "-l", "--", keys); err != nil {
		return err
	}
	return run.Command("tmux", "send-keys", "-t", target, "C-m")
}

// KillSession kills a session. Killing a session that is already gone
// returns an error the caller is free to ignore.
func KillSession(name string) error {
	return run.Command("tmux", "kill-session", "-t", name)
}

// Attach hands the terminal to tmux until the user detaches. When the
// caller is already inside tmux, switch-client is used instead because
// nesting attach is refused by tmux.
func Attach(session string) error {
	if InTmux() {
		return run.Command("tmux", "switch-client", "-t", session)
	}
	return run.Interactive("tmux", "attach", "-t", session)
}

// CapturePane captures the last n lines of scrollback from a pane target.
// Any failure yields an empty string; a session that cannot be captured
// is treated the same as one that is not running.
func CapturePane(target string, lines int) string {
	out, err := run.Capture("tmux", "capture-pane", "-t", target, "-p", "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return ""
	}
	return out
}

// SetDisplayTime sets the global indicator display timeout. Idempotent
// and purely cosmetic; failures are the caller's to ignore.
func SetDisplayTime(ms int) error {
	return run.Command("tmux", "set-option", "-g", "display-time", strconv.Itoa(ms))
}
