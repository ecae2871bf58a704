package worktree

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/wtmux/wtmux/internal/session"
)

// CleanupOrphanedSessions terminates primary sessions whose backing
// worktree no longer exists. Shell companion sessions are skipped: they
// are cleaned up via their primary counterpart, not reaped independently.
// Returns the names of the sessions it killed.
//
// A session's "<project>-<feature>" suffix is split against the known
// project list (longest project first, so dashed project names resolve
// correctly), and the feature is matched as a substring of each valid
// worktree path's final element. The substring check tolerates layout
// variations but can false-negative when one feature name is a substring
// of another (foo vs foo-bar); preserved as-is, see DESIGN.md.
func (m *Manager) CleanupOrphanedSessions(validWorktreePaths []string) []string {
	projects := m.Projects()
	sort.Slice(projects, func(i, j int) bool { return len(projects[i]) > len(projects[j]) })

	var killed []string
	for _, name := range m.dir.ListSessions() {
		suffix, owned := session.Suffix(m.opts.Prefix, name)
		if !owned || session.IsShell(name) {
			continue
		}

		feature := featureFromSuffix(suffix, projects)
		if feature == "" {
			// Not one of ours after all; leave it alone.
			continue
		}

		backed := false
		for _, path := range validWorktreePaths {
			if strings.Contains(filepath.Base(path), feature) {
				backed = true
				break
			}
		}
		if backed {
			continue
		}

		if err := m.dir.KillSession(name); err == nil {
			killed = append(killed, name)
		}
	}
	return killed
}

// featureFromSuffix strips the "<project>-" lead from a session suffix.
// Returns "" when no known project matches.
func featureFromSuffix(suffix string, projectsLongestFirst []string) string {
	for _, p := range projectsLongestFirst {
		if strings.HasPrefix(suffix, p+"-") {
			return strings.TrimPrefix(suffix, p+"-")
		}
	}
	return ""
}
