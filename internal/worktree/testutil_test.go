package worktree

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeDirectory is an injected session directory for deterministic tests.
type fakeDirectory struct {
	sessions map[string]bool
	captures map[string]string
	killed   []string
}

func newFakeDirectory(sessions ...string) *fakeDirectory {
	f := &fakeDirectory{
		sessions: make(map[string]bool),
		captures: make(map[string]string),
	}
	for _, s := range sessions {
		f.sessions[s] = true
	}
	return f
}

func (f *fakeDirectory) ListSessions() []string {
	var names []string
	for name, live := range f.sessions {
		if live {
			names = append(names, name)
		}
	}
	return names
}

func (f *fakeDirectory) SessionExists(name string) bool {
	return f.sessions[name]
}

func (f *fakeDirectory) FindAssistantPane(sessionName string) string {
	if !f.sessions[sessionName] {
		return ""
	}
	return sessionName + ":0"
}

func (f *fakeDirectory) CapturePane(sessionName string) string {
	return f.captures[sessionName]
}

func (f *fakeDirectory) KillSession(name string) error {
	if !f.sessions[name] {
		return os.ErrNotExist
	}
	delete(f.sessions, name)
	f.killed = append(f.killed, name)
	return nil
}

// newTestManager builds a Manager over a temp projects base with the
// given project checkouts present.
func newTestManager(t *testing.T, dir *fakeDirectory, projects ...string) (*Manager, string) {
	t.Helper()
	base := t.TempDir()
	for _, p := range projects {
		if err := os.MkdirAll(filepath.Join(base, p), 0o755); err != nil {
			t.Fatalf("creating project dir: %v", err)
		}
	}
	mgr := NewManager(Options{Base: base, Prefix: "dev-"}, nil, dir)
	return mgr, base
}

// writeFile creates a file with parents.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
