package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peterM/HangFixer/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Print sentinels as they are armed and disarmed",
	Long: `Watch follows sentinel files under dir and prints a line each time one
appears or disappears. A sentinel that appears and stays means a load is in
progress or stuck. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolP("recursive", "r", false, "watch subdirectories too")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	w, err := monitor.New(rt.cfg.Sentinel.Extension, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	recursive, _ := cmd.Flags().GetBool("recursive")
	if err := w.Add(args[0], recursive); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPainter(out)
	w.SetChangeCallback(func(c monitor.Change) {
		state := p.ok("disarmed")
		if c.Armed {
			state = p.warn("armed   ")
		}
		fmt.Fprintf(out, "%s %s %s\n", p.muted(c.At.Format(time.TimeOnly)), state, c.Path)
	})
	w.Start()

	fmt.Fprintf(out, "watching %d director(ies) for *%s\n", len(w.Dirs()), rt.cfg.Sentinel.Extension)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
