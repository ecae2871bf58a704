// Package cli wires the wtmux commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wtmux/wtmux/internal/config"
	"github.com/wtmux/wtmux/internal/git"
	"github.com/wtmux/wtmux/internal/worktree"
)

var rootCmd = &cobra.Command{
	Use:   "wtmux",
	Short: "Parallel developer workstreams: git worktrees paired with assistant tmux sessions",
	Long: `wtmux manages parallel feature workstreams. Each feature is a git
worktree paired with a tmux session running an AI coding assistant.
wtmux creates and archives these pairs, classifies assistant activity
from pane output, and can broadcast worktree state to remote viewers.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		newCreateCmd(),
		newArchiveCmd(),
		newAttachCmd(),
		newLsCmd(),
		newCleanCmd(),
		newStatusCmd(),
		newRelayCmd(),
		newSyncCmd(),
	)
}

// newManager loads config and builds the lifecycle manager the commands
// share.
func newManager() (*worktree.Manager, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}
	mgr := worktree.NewManager(worktree.Options{
		Base:             cfg.ProjectsBase,
		Prefix:           cfg.SessionPrefix,
		AssistantCommand: cfg.AssistantCommand,
	}, git.NewClient(cfg.ProjectsBase), nil)
	return mgr, cfg, nil
}

// fail prints a user-facing failure message. Lifecycle operations report
// failure through falsy results, not errors; this is where they surface.
func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
