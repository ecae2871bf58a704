// Package session derives session names for worktrees and inspects the
// panes of live sessions to find the one running the coding assistant.
package session

import "strings"

// DefaultPrefix namespaces wtmux-owned sessions apart from any other tmux
// sessions on the machine.
const DefaultPrefix = "dev-"

// ShellSuffix marks the companion shell session paired with a primary
// assistant session.
const ShellSuffix = "-shell"

// Name returns the canonical session name for a (project, feature) pair.
// Deterministic: the same pair always yields the same name. No escaping
// is performed on project or feature beyond upstream sanitization, so a
// delimiter embedded in either could alias another pair.
func Name(prefix, project, feature string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + project + "-" + feature
}

// ShellName returns the name of the companion shell session.
func ShellName(prefix, project, feature string) string {
	return Name(prefix, project, feature) + ShellSuffix
}

// IsShell reports whether a session name is a shell companion.
func IsShell(name string) bool {
	return strings.HasSuffix(name, ShellSuffix)
}

// Suffix strips the prefix from a session name, returning the
// "<project>-<feature>" remainder and whether the name was wtmux-owned.
func Suffix(prefix, name string) (string, bool) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	return strings.TrimPrefix(name, prefix), true
}
