package session

import (
	"fmt"
	"strings"

	"github.com/wtmux/wtmux/internal/tmux"
)

// assistantCommands is the allow-list of process names recognized as a
// coding assistant. Matching is a case-insensitive substring check so
// wrapper names like "claude-code" or "node (aider)" still match.
var assistantCommands = []string{
	"claude",
	"aider",
	"codex",
	"gemini",
	"cursor",
}

// CaptureLines bounds pane scrollback capture. Enough to see the current
// prompt and recent output without paying for full history.
const CaptureLines = 50

// Directory lists live sessions and inspects their panes. The tmux-backed
// implementation is the only real one; tests inject fakes.
type Directory interface {
	ListSessions() []string
	SessionExists(name string) bool
	FindAssistantPane(session string) string
	CapturePane(session string) string
	KillSession(name string) error
}

// TmuxDirectory implements Directory against the local tmux server.
type TmuxDirectory struct{}

// ListSessions returns all live session names, empty on any failure.
func (TmuxDirectory) ListSessions() []string {
	return tmux.ListSessionNames()
}

// SessionExists reports whether the named session is live.
func (TmuxDirectory) SessionExists(name string) bool {
	return tmux.SessionExists(name)
}

// FindAssistantPane returns the pane target running the assistant in the
// named session. Falls back to the first pane when no pane command
// matches the allow-list, and returns "" when the session has no panes
// (it does not exist).
func (TmuxDirectory) FindAssistantPane(sessionName string) string {
	panes, err := tmux.ListPanes(sessionName)
	if err != nil || len(panes) == 0 {
		return ""
	}
	for _, p := range panes {
		cmd := strings.ToLower(p.Command)
		for _, want := range assistantCommands {
			if strings.Contains(cmd, want) {
				return fmt.Sprintf("%s:%d", sessionName, p.Index)
			}
		}
	}
	return fmt.Sprintf("%s:%d", sessionName, panes[0].Index)
}

// CapturePane captures recent scrollback from the assistant pane of the
// named session. Empty string on any failure, including a dead session.
func (d TmuxDirectory) CapturePane(sessionName string) string {
	target := d.FindAssistantPane(sessionName)
	if target == "" {
		return ""
	}
	return tmux.CapturePane(target, CaptureLines)
}

// KillSession terminates the named session.
func (TmuxDirectory) KillSession(name string) error {
	return tmux.KillSession(name)
}
