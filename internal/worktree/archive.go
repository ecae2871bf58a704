package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// archivePrefix marks archived worktree directories.
const archivePrefix = "archived-"

// archiveTimestampFormat is zero-padded local time so lexicographic order
// of same-day archives matches chronological order.
const archiveTimestampFormat = "20060102-150405"

// ArchiveDir returns the archive root for a project.
func (m *Manager) ArchiveDir(project string) string {
	return filepath.Join(m.opts.Base, project+"-archive")
}

// archiveName builds the destination directory name for an archived
// feature: archived-<YYYYMMDD-HHMMSS>_<feature>.
func archiveName(feature string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s", archivePrefix, now.Format(archiveTimestampFormat), feature)
}

// ArchiveFeature kills the feature's primary session, moves its worktree
// into the project archive root, and prunes stale git worktree refs.
// Returns the archived destination path, or "" when the move failed.
//
// There is no rollback on a mid-copy failure: a partially copied
// destination may be left behind. Accepted for a local developer tool.
func (m *Manager) ArchiveFeature(project, path, feature string) string {
	name := Identity{Project: project, Feature: feature}.SessionName(m.opts.Prefix)
	if m.dir.SessionExists(name) {
		// Already-gone sessions are fine; the kill is best-effort.
		_ = m.dir.KillSession(name)
	}

	archiveRoot := m.ArchiveDir(project)
	if err := os.MkdirAll(archiveRoot, 0o755); err != nil {
		return ""
	}

	dest := filepath.Join(archiveRoot, archiveName(feature, time.Now()))
	if err := moveDir(path, dest); err != nil {
		return ""
	}

	m.git.PruneWorktrees(project)
	return dest
}

// moveDir relocates a directory, preferring an atomic rename and falling
// back to a recursive copy plus source delete when rename fails (e.g.
// crossing devices). The copy includes all dotfiles.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// ListArchived returns archived records for a project, newest first by
// directory name (the timestamp prefix makes that chronological).
func (m *Manager) ListArchived(project string) []Record {
	entries, err := os.ReadDir(m.ArchiveDir(project))
	if err != nil {
		return nil
	}

	var records []Record
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), archivePrefix) {
			continue
		}
		records = append(records, Record{
			Identity: Identity{Project: project, Feature: archivedFeature(e.Name())},
			Path:     filepath.Join(m.ArchiveDir(project), e.Name()),
			Archived: true,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path > records[j].Path })
	return records
}

// archivedFeature recovers the feature name from an archived directory
// name. The timestamp never contains an underscore, so everything after
// the first underscore past the prefix is the feature.
func archivedFeature(dirName string) string {
	rest := strings.TrimPrefix(dirName, archivePrefix)
	if i := strings.Index(rest, "_"); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

// DeleteArchived removes an archived worktree tree. Boolean contract,
// never an error: the caller presents a user-facing message on false.
func (m *Manager) DeleteArchived(path string) bool {
	return os.RemoveAll(path) == nil
}
