package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wtmux/wtmux/internal/run"
)

func TestPathLayout(t *testing.T) {
	c := NewClient("/base")

	if got := c.ProjectDir("myproj"); got != filepath.Join("/base", "myproj") {
		t.Errorf("ProjectDir = %q", got)
	}
	if got := c.BranchesDir("myproj"); got != filepath.Join("/base", "myproj-branches") {
		t.Errorf("BranchesDir = %q", got)
	}
	if got := c.WorktreePath("myproj", "auth"); got != filepath.Join("/base", "myproj-branches", "auth") {
		t.Errorf("WorktreePath = %q", got)
	}
}

func TestBranchName(t *testing.T) {
	if got := BranchName("auth"); got != "feature/auth" {
		t.Errorf("BranchName = %q, want feature/auth", got)
	}
}

func TestCurrentBranchNonRepo(t *testing.T) {
	if got := CurrentBranch(t.TempDir()); got != "" {
		t.Errorf("CurrentBranch on non-repo = %q, want empty", got)
	}
}

func TestCreateWorktreeNonRepo(t *testing.T) {
	if !run.InPath("git") {
		t.Skip("git not installed")
	}
	base := t.TempDir()
	c := NewClient(base)
	if err := os.MkdirAll(c.ProjectDir("myproj"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Plain directory, not a repository: worktree add must fail cleanly.
	if c.CreateWorktree("myproj", "auth") {
		t.Error("CreateWorktree succeeded against a non-repo directory")
	}
}

// Full lifecycle against a real repository: create, inspect branch, prune.
func TestCreateWorktree(t *testing.T) {
	if !run.InPath("git") {
		t.Skip("git not installed")
	}
	base := t.TempDir()
	c := NewClient(base)
	proj := c.ProjectDir("myproj")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	initRepo(t, proj)

	if !c.CreateWorktree("myproj", "auth") {
		t.Fatal("CreateWorktree failed against a fresh repo")
	}
	path := c.WorktreePath("myproj", "auth")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("worktree directory missing: %v", err)
	}
	if got := CurrentBranch(path); got != "feature/auth" {
		t.Errorf("CurrentBranch = %q, want feature/auth", got)
	}

	// A second worktree for the same feature must fail (branch exists).
	if c.CreateWorktree("myproj", "auth") {
		t.Error("duplicate CreateWorktree succeeded")
	}

	if err := os.RemoveAll(path); err != nil {
		t.Fatal(err)
	}
	c.PruneWorktrees("myproj")
	if c.CreateWorktree("myproj", "auth2") != true {
		t.Error("CreateWorktree after prune failed")
	}
}

func initRepo(t *testing.T, dir string) {
	t.Helper()
	steps := [][]string{
		{"init"},
		{"-c", "user.email=t@example.com", "-c", "user.name=t", "commit", "--allow-empty", "-m", "init"},
	}
	for _, args := range steps {
		if err := run.Command("git", append([]string{"-C", dir}, args...)...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
}
