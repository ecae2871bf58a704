// Package checks retrieves best-effort PR and CI status for a worktree
// via the gh CLI. Everything here is expected-absence friendly: no gh on
// PATH, no PR for the branch, and malformed output all yield zero values.
package checks

import (
	"encoding/json"

	"github.com/wtmux/wtmux/internal/run"
)

// Status summarizes the pull request tied to a worktree's branch.
type Status struct {
	Number int    `json:"number,omitempty"`
	State  string `json:"state,omitempty"`  // OPEN, MERGED, CLOSED
	Checks string `json:"checks,omitempty"` // pass, fail, pending
}

// Provider retrieves status keyed by worktree path. Tests inject fakes.
type Provider interface {
	ForWorktree(path string) Status
}

// GHProvider shells out to gh for the worktree's current branch PR.
type GHProvider struct{}

// ghStatus mirrors the fields requested from gh pr view.
type ghStatus struct {
	Number            int    `json:"number"`
	State             string `json:"state"`
	StatusCheckRollup []struct {
		Conclusion string `json:"conclusion"`
	} `json:"statusCheckRollup"`
}

// ForWorktree returns the PR status for the branch checked out at path.
func (GHProvider) ForWorktree(path string) Status {
	if !run.InPath("gh") {
		return Status{}
	}
	out := run.QuickIn(path, "gh", "pr", "view", "--json", "number,state,statusCheckRollup")
	if out == "" {
		return Status{}
	}

	var raw ghStatus
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return Status{}
	}

	return Status{
		Number: raw.Number,
		State:  raw.State,
		Checks: rollup(raw),
	}
}

// rollup reduces individual check conclusions to pass/fail/pending.
func rollup(raw ghStatus) string {
	if len(raw.StatusCheckRollup) == 0 {
		return ""
	}
	pending := false
	for _, c := range raw.StatusCheckRollup {
		switch c.Conclusion {
		case "FAILURE", "TIMED_OUT", "CANCELLED":
			return "fail"
		case "":
			pending = true
		}
	}
	if pending {
		return "pending"
	}
	return "pass"
}
