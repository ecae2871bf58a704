// Package git is the narrow git collaborator consumed by the worktree
// lifecycle manager. Contracts are boolean success/failure; no error ever
// crosses this boundary.
package git

import (
	"os"
	"path/filepath"

	"github.com/wtmux/wtmux/internal/run"
)

// Client runs git operations for a projects base directory. Projects live
// at <base>/<project>, and feature worktrees at <base>/<project>-branches.
type Client struct {
	Base string
}

// NewClient returns a git client rooted at the projects base.
func NewClient(base string) *Client {
	return &Client{Base: base}
}

// ProjectDir returns the main checkout directory for a project.
func (c *Client) ProjectDir(project string) string {
	return filepath.Join(c.Base, project)
}

// BranchesDir returns the directory holding a project's feature worktrees.
func (c *Client) BranchesDir(project string) string {
	return filepath.Join(c.Base, project+"-branches")
}

// WorktreePath returns the path a feature worktree is provisioned at.
func (c *Client) WorktreePath(project, feature string) string {
	return filepath.Join(c.BranchesDir(project), feature)
}

// BranchName returns the branch created for a feature.
func BranchName(feature string) string {
	return "feature/" + feature
}

// CreateWorktree adds a worktree with a fresh feature branch. Returns
// false when git fails for any reason (branch exists, dirty repo, not a
// repo at all).
func (c *Client) CreateWorktree(project, feature string) bool {
	if err := os.MkdirAll(c.BranchesDir(project), 0o755); err != nil {
		return false
	}
	path := c.WorktreePath(project, feature)
	err := run.Command("git", "-C", c.ProjectDir(project),
		"worktree", "add", "-b", BranchName(feature), path)
	return err == nil
}

// CreateWorktreeFromRemote adds a worktree tracking an existing remote
// branch under a local name.
func (c *Client) CreateWorktreeFromRemote(project, remoteBranch, localName string) bool {
	if err := os.MkdirAll(c.BranchesDir(project), 0o755); err != nil {
		return false
	}
	path := filepath.Join(c.BranchesDir(project), localName)
	err := run.Command("git", "-C", c.ProjectDir(project),
		"worktree", "add", "--track", "-b", localName, path, "origin/"+remoteBranch)
	return err == nil
}

// PruneWorktrees drops stale worktree references after a worktree
// directory has been moved or deleted. Best-effort: a dangling reference
// is cosmetic, not corrupting.
func (c *Client) PruneWorktrees(project string) {
	_ = run.Command("git", "-C", c.ProjectDir(project), "worktree", "prune")
}

// CurrentBranch returns the checked-out branch of a worktree directory,
// or "" when it cannot be determined.
func CurrentBranch(dir string) string {
	return run.Quick("git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD")
}
