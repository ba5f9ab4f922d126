package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/peterM/HangFixer/internal/recovery"
)

var statusCmd = &cobra.Command{
	Use:   "status <descriptor>",
	Short: "Show whether a workspace's sentinel is armed",
	Long: `Status reports the sentinel for a workspace descriptor and, when it is
armed, what the next load would purge.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()
	p := newPainter(out)
	descriptor := args[0]

	armed, probeErr := rt.sentinels.Probe(descriptor)
	if probeErr != nil {
		return probeErr
	}

	fmt.Fprintf(out, "%s %s\n", p.label("Workspace"), descriptor)
	fmt.Fprintf(out, "%s %s\n", p.label("Sentinel"), rt.sentinels.Path(descriptor))

	if !armed {
		fmt.Fprintf(out, "%s %s\n", p.label("State"), p.ok("clear"))
		return nil
	}

	info, err := rt.sentinels.Inspect(descriptor)
	if err != nil {
		// Raced with a disarm; report what we saw.
		fmt.Fprintf(out, "%s %s\n", p.label("State"), p.warn("armed"))
		return nil
	}
	age := time.Since(info.ModTime).Truncate(time.Second)
	fmt.Fprintf(out, "%s %s %s\n", p.label("State"), p.warn("armed"),
		p.muted(fmt.Sprintf("(since %s, %s ago)", info.ModTime.Format(time.RFC3339), age)))

	if stamp := strings.TrimSpace(info.Stamp); stamp != "" {
		fmt.Fprintf(out, "%s\n", p.label("Stamp"))
		for _, line := range strings.Split(stamp, "\n") {
			fmt.Fprintf(out, "  %s\n", p.muted(line))
		}
	}

	root := recovery.Root(descriptor)
	targets, failures := rt.policy.Plan(root)
	fmt.Fprintf(out, "%s\n", p.label("Next load purges"))
	if len(targets) == 0 {
		fmt.Fprintf(out, "  %s\n", p.muted("nothing present"))
	}
	for _, t := range targets {
		fmt.Fprintf(out, "  %s  %s\n", t.Path, p.muted(string(t.Kind)))
	}
	for _, f := range failures {
		fmt.Fprintf(out, "  %s  %s\n", f.Target.Path, p.fail(f.Err.Error()))
	}
	return nil
}
