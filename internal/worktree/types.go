// Package worktree orchestrates the lifecycle of a feature: a git
// worktree paired with tmux sessions running a coding assistant.
package worktree

import "github.com/wtmux/wtmux/internal/session"

// Identity uniquely identifies a unit of work. It is stable for the
// lifetime of the worktree: archival relocates the directory but does not
// change the identity until the archived copy is deleted.
type Identity struct {
	Project string `json:"project"`
	Feature string `json:"feature"`
}

// SessionName returns the canonical primary session name.
func (id Identity) SessionName(prefix string) string {
	return session.Name(prefix, id.Project, id.Feature)
}

// ShellSessionName returns the companion shell session name.
func (id Identity) ShellSessionName(prefix string) string {
	return session.ShellName(prefix, id.Project, id.Feature)
}

// Record is a provisioned feature worktree. Path changes exactly once, at
// archival. Owned exclusively by the Manager; callers only read snapshots.
type Record struct {
	Identity
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	Archived bool   `json:"archived"`
}
