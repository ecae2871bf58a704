package worktree

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wtmux/wtmux/internal/git"
	"github.com/wtmux/wtmux/internal/run"
	"github.com/wtmux/wtmux/internal/session"
	"github.com/wtmux/wtmux/internal/tmux"
)

// envFiles are copied from the project root into a fresh worktree so the
// assistant starts with the same local configuration. Absence of any of
// them is not an error.
var envFiles = []string{".env", ".claude", "CLAUDE.md"}

// displayTimeMs is the tmux indicator display timeout applied on session
// creation. Cosmetic, idempotent, safe to repeat.
const displayTimeMs = 2000

// Options configures a Manager.
type Options struct {
	Base             string // projects base directory
	Prefix           string // session name prefix
	AssistantCommand string // command launched in new sessions, e.g. "claude"
}

// Manager owns worktree records and their paired sessions. It is the only
// writer of worktree state; the UI layer and the sync server read
// snapshots through it.
type Manager struct {
	opts Options
	git  *git.Client
	dir  session.Directory
}

// NewManager creates a Manager. A nil directory gets the tmux-backed one.
func NewManager(opts Options, g *git.Client, dir session.Directory) *Manager {
	if opts.Prefix == "" {
		opts.Prefix = session.DefaultPrefix
	}
	if g == nil {
		g = git.NewClient(opts.Base)
	}
	if dir == nil {
		dir = session.TmuxDirectory{}
	}
	return &Manager{opts: opts, git: g, dir: dir}
}

// Prefix returns the session name prefix in use.
func (m *Manager) Prefix() string {
	return m.opts.Prefix
}

// CreateFeature provisions a worktree on branch feature/<feature>, copies
// local config into it, and starts a detached session with the assistant
// launched. Returns nil when the git step fails; everything after the git
// step is best-effort and never rolls step one back.
func (m *Manager) CreateFeature(project, feature string) *Record {
	if !m.git.CreateWorktree(project, feature) {
		return nil
	}

	rec := &Record{
		Identity: Identity{Project: project, Feature: feature},
		Path:     m.git.WorktreePath(project, feature),
		Branch:   git.BranchName(feature),
	}

	m.copyEnvFiles(m.git.ProjectDir(project), rec.Path)
	m.ensureSession(rec.SessionName(m.opts.Prefix), rec.Path)

	return rec
}

// ensureSession creates a detached session at cwd if absent and launches
// the assistant in its first pane when the executable is on PATH.
func (m *Manager) ensureSession(name, cwd string) {
	if m.dir.SessionExists(name) {
		return
	}
	if err := tmux.NewSession(name, cwd); err != nil {
		return
	}
	if m.opts.AssistantCommand != "" && run.InPath(m.opts.AssistantCommand) {
		_ = tmux.SendKeys(name, m.opts.AssistantCommand)
	}
	_ = tmux.SetDisplayTime(displayTimeMs)
}

// AttachOrCreateSession ensures a primary session exists for the feature,
// then hands the terminal to tmux until the user detaches. Blocks the
// calling flow for the duration of the attached session.
func (m *Manager) AttachOrCreateSession(project, feature, cwd string) error {
	name := session.Name(m.opts.Prefix, project, feature)
	m.ensureSession(name, cwd)
	return tmux.Attach(name)
}

// AttachShell is AttachOrCreateSession for the companion shell session.
// The shell session gets no assistant launched into it.
func (m *Manager) AttachShell(project, feature, cwd string) error {
	name := session.ShellName(m.opts.Prefix, project, feature)
	if !m.dir.SessionExists(name) {
		if err := tmux.NewSession(name, cwd); err != nil {
			return err
		}
	}
	return tmux.Attach(name)
}

// copyEnvFiles copies well-known local config files from the project root
// into a fresh worktree. Missing sources and failed copies are silent.
func (m *Manager) copyEnvFiles(projectRoot, worktreeRoot string) {
	for _, name := range envFiles {
		src := filepath.Join(projectRoot, name)
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		dst := filepath.Join(worktreeRoot, name)
		if info.IsDir() {
			_ = copyTree(src, dst)
		} else {
			_ = copyFile(src, dst, info.Mode())
		}
	}
}

// ListFeatures enumerates live (non-archived) worktrees for a project.
// Records are sorted by feature name. A missing branches directory is an
// empty project, not an error.
func (m *Manager) ListFeatures(project string) []Record {
	entries, err := os.ReadDir(m.git.BranchesDir(project))
	if err != nil {
		return nil
	}

	var records []Record
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.HasPrefix(e.Name(), archivePrefix) {
			continue
		}
		path := filepath.Join(m.git.BranchesDir(project), e.Name())
		records = append(records, Record{
			Identity: Identity{Project: project, Feature: e.Name()},
			Path:     path,
			Branch:   git.CurrentBranch(path),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Feature < records[j].Feature })
	return records
}

// Projects enumerates project checkouts under the base directory. A
// project is any directory that is not a branches or archive companion.
func (m *Manager) Projects() []string {
	entries, err := os.ReadDir(m.opts.Base)
	if err != nil {
		return nil
	}
	var projects []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, "-branches") || strings.HasSuffix(name, "-archive") {
			continue
		}
		projects = append(projects, name)
	}
	sort.Strings(projects)
	return projects
}

// copyFile copies a single file preserving its mode.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// copyTree recursively copies a directory, including dotfiles.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}
