package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wtmux/wtmux/internal/session"
	"github.com/wtmux/wtmux/internal/status"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <project> <feature>",
		Short: "Create a feature worktree with a paired assistant session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			rec := mgr.CreateFeature(args[0], args[1])
			if rec == nil {
				return fail("could not create worktree for %s/%s (branch may already exist)", args[0], args[1])
			}
			fmt.Printf("Created %s on %s\n", rec.Path, rec.Branch)
			if isatty.IsTerminal(os.Stdout.Fd()) {
				fmt.Printf("Attach with: wtmux attach %s %s\n", rec.Project, rec.Feature)
			}
			return nil
		},
	}
}

func newArchiveCmd() *cobra.Command {
	var deleteArchived bool
	cmd := &cobra.Command{
		Use:   "archive <project> <feature>",
		Short: "Kill the feature's session and move its worktree into the archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			project, feature := args[0], args[1]

			var path string
			for _, rec := range mgr.ListFeatures(project) {
				if rec.Feature == feature {
					path = rec.Path
					break
				}
			}
			if path == "" {
				return fail("no worktree found for %s/%s", project, feature)
			}

			dest := mgr.ArchiveFeature(project, path, feature)
			if dest == "" {
				return fail("could not archive %s/%s", project, feature)
			}
			fmt.Printf("Archived to %s\n", dest)

			if deleteArchived {
				if !mgr.DeleteArchived(dest) {
					return fail("could not delete %s", dest)
				}
				fmt.Println("Deleted archived copy")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteArchived, "delete", false, "delete the archived copy immediately")
	return cmd
}

func newAttachCmd() *cobra.Command {
	var shell bool
	cmd := &cobra.Command{
		Use:   "attach <project> <feature>",
		Short: "Attach to the feature's session, creating it if needed",
		Long: `Attach ensures the feature's tmux session exists, then hands this
terminal to tmux until you detach. With --shell the companion shell
session is used instead of the assistant session.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			project, feature := args[0], args[1]

			cwd := ""
			for _, rec := range mgr.ListFeatures(project) {
				if rec.Feature == feature {
					cwd = rec.Path
					break
				}
			}
			if cwd == "" {
				return fail("no worktree found for %s/%s", project, feature)
			}

			if shell {
				return mgr.AttachShell(project, feature, cwd)
			}
			return mgr.AttachOrCreateSession(project, feature, cwd)
		},
	}
	cmd.Flags().BoolVar(&shell, "shell", false, "attach the companion shell session")
	return cmd
}

func newLsCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "ls [project]",
		Short: "List feature worktrees",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}

			projects := mgr.Projects()
			if len(args) == 1 {
				projects = []string{args[0]}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "PROJECT\tFEATURE\tBRANCH\tPATH")
			for _, project := range projects {
				records := mgr.ListFeatures(project)
				if archived {
					records = mgr.ListArchived(project)
				}
				for _, rec := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Project, rec.Feature, rec.Branch, rec.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived worktrees instead")
	return cmd
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Terminate sessions whose backing worktree is gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}

			var valid []string
			for _, project := range mgr.Projects() {
				for _, rec := range mgr.ListFeatures(project) {
					valid = append(valid, rec.Path)
				}
			}

			killed := mgr.CleanupOrphanedSessions(valid)
			if len(killed) == 0 {
				fmt.Println("No orphaned sessions")
				return nil
			}
			for _, name := range killed {
				fmt.Printf("Killed %s\n", name)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [project]",
		Short: "Show assistant activity state for each feature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}

			projects := mgr.Projects()
			if len(args) == 1 {
				projects = []string{args[0]}
			}

			dir := session.TmuxDirectory{}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "PROJECT\tFEATURE\tSESSION\tSTATE")
			for _, project := range projects {
				for _, rec := range mgr.ListFeatures(project) {
					name := rec.SessionName(mgr.Prefix())
					state := status.Classify(dir.CapturePane(name))
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Project, rec.Feature, name, state)
				}
			}
			return nil
		},
	}
}
