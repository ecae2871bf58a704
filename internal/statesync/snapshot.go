// Package statesync pushes versioned worktree-state snapshots to
// subscribed WebSocket clients, on a timer and on demand.
package statesync

import (
	"github.com/wtmux/wtmux/internal/checks"
	"github.com/wtmux/wtmux/internal/session"
	"github.com/wtmux/wtmux/internal/status"
	"github.com/wtmux/wtmux/internal/worktree"
)

// Summary is one worktree's entry in a snapshot. Session, tool, and PR
// fields are best-effort: a dead tmux server or missing gh simply leaves
// them at their zero values.
type Summary struct {
	Project string        `json:"project"`
	Feature string        `json:"feature"`
	Path    string        `json:"path"`
	Branch  string        `json:"branch,omitempty"`
	Session string        `json:"session,omitempty"`
	Status  status.State  `json:"status"`
	PR      checks.Status `json:"pr,omitempty"`
}

// Snapshot is a versioned point-in-time view of all tracked worktrees.
// Version is monotonic and increments on every successful refresh, even
// when the items are unchanged: clients can detect staleness but cannot
// distinguish "no change" from "refreshed" without diffing.
type Snapshot struct {
	Version int64     `json:"version"`
	Items   []Summary `json:"items"`
}

// Builder computes worktree summaries. Tests inject fakes.
type Builder interface {
	Build() ([]Summary, error)
}

// Snapshotter builds summaries from the worktree manager, the session
// directory, and the checks provider.
type Snapshotter struct {
	Manager *worktree.Manager
	Dir     session.Directory
	Checks  checks.Provider // optional
}

// Build walks every project's live features and classifies their
// sessions. Per-feature capture failures degrade to StateNotRunning; the
// only error surfaced is a completely unreadable projects base, in which
// case the caller keeps its previous snapshot.
func (s *Snapshotter) Build() ([]Summary, error) {
	items := make([]Summary, 0)
	for _, project := range s.Manager.Projects() {
		for _, rec := range s.Manager.ListFeatures(project) {
			name := rec.SessionName(s.Manager.Prefix())
			sum := Summary{
				Project: rec.Project,
				Feature: rec.Feature,
				Path:    rec.Path,
				Branch:  rec.Branch,
				Session: name,
				Status:  status.Classify(s.Dir.CapturePane(name)),
			}
			if s.Checks != nil {
				sum.PR = s.Checks.ForWorktree(rec.Path)
			}
			items = append(items, sum)
		}
	}
	return items, nil
}
