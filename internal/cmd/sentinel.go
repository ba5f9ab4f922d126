package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var armCmd = &cobra.Command{
	Use:   "arm <descriptor>",
	Short: "Write the sentinel for a workspace by hand",
	Long: `Arm writes the sentinel as if a load had started and never finished.
The next primary load of the workspace will purge its caches.`,
	Args: cobra.ExactArgs(1),
	RunE: runArm,
}

var disarmCmd = &cobra.Command{
	Use:   "disarm <descriptor>",
	Short: "Remove the sentinel for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisarm,
}

func init() {
	armCmd.Flags().String("attempt", "", "attempt id to stamp (default: a new UUID)")
	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
}

func runArm(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	attempt, _ := cmd.Flags().GetString("attempt")
	if attempt == "" {
		attempt = uuid.NewString()
	}

	if err := rt.sentinels.Arm(args[0], attempt); err != nil {
		return err
	}
	p := newPainter(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", p.warn("armed"), rt.sentinels.Path(args[0]), p.muted("attempt "+attempt))
	return nil
}

func runDisarm(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.sentinels.Disarm(args[0]); err != nil {
		return err
	}
	p := newPainter(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.ok("disarmed"), rt.sentinels.Path(args[0]))
	return nil
}
