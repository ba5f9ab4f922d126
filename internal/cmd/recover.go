package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peterM/HangFixer/internal/recovery"
)

var recoverCmd = &cobra.Command{
	Use:   "recover <descriptor>",
	Short: "Purge a workspace's cache directories and session files now",
	Long: `Recover runs the purge the next load would run after a crash, regardless
of whether the sentinel is armed. The sentinel itself is left alone.

Use --dry-run to list what would be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecover,
}

func init() {
	recoverCmd.Flags().Bool("dry-run", false, "list targets without deleting them")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()
	p := newPainter(out)
	root := recovery.Root(args[0])
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if dryRun {
		targets, failures := rt.policy.Plan(root)
		if len(targets) == 0 && len(failures) == 0 {
			fmt.Fprintf(out, "nothing to purge under %s\n", root)
			return nil
		}
		for _, t := range targets {
			fmt.Fprintf(out, "%s %s\n", p.muted("would delete"), t.Path)
		}
		for _, f := range failures {
			fmt.Fprintf(out, "%s %s: %v\n", p.fail("cannot inspect"), f.Target.Path, f.Err)
		}
		return nil
	}

	report := rt.policy.Recover(root)
	for _, t := range report.Deleted {
		fmt.Fprintf(out, "%s %s\n", p.ok("deleted"), t.Path)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "%s %s: %v\n", p.fail("failed"), f.Target.Path, f.Err)
	}
	fmt.Fprintf(out, "%d deleted, %d failed in %s\n", len(report.Deleted), len(report.Failed), report.Duration.Round(time.Millisecond))

	if err := report.Err(); err != nil {
		return fmt.Errorf("recovery incomplete: %d target(s) failed", len(report.Failed))
	}
	return nil
}
