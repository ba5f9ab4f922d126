package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/peterM/HangFixer/internal/errors"
	"github.com/peterM/HangFixer/internal/event"
	"github.com/peterM/HangFixer/internal/host"
	"github.com/peterM/HangFixer/internal/metrics"
	"github.com/peterM/HangFixer/internal/server"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Handle host lifecycle notifications on stdin",
	Long: `Listen reads host notifications as newline-delimited JSON from stdin and
writes one acknowledgement per line to stdout. Each line looks like

  {"id":1,"event":"before_open_solution","path":"C:/src/app/app.sln"}

and is answered with {"id":1,"ok":true}. Every notification is acknowledged
as successful, whatever happens to the sentinel or the caches.

With --metrics (or metrics.enabled), an HTTP endpoint serves /metrics,
/health and /workspaces while listening.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().Bool("metrics", false, "serve Prometheus metrics (overrides metrics.enabled)")
	listenCmd.Flags().String("metrics-addr", "", "metrics listen address (overrides metrics.addr)")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	enabled := rt.cfg.Metrics.Enabled
	if cmd.Flags().Changed("metrics") {
		enabled, _ = cmd.Flags().GetBool("metrics")
	}
	addr := rt.cfg.Metrics.Addr
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		addr = v
	}

	bus := event.NewBus()
	seq := rt.sequencer(bus)
	adapter := host.NewAdapter(seq, rt.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("listening for host notifications", "metrics", enabled)

	if !enabled {
		return ignoreCanceled(adapter.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()))
	}

	collector := metrics.New()
	collector.Attach(bus)
	defer collector.Detach(bus)

	srv := server.New(addr, seq, collector.Handler(), rt.logger)

	// The HTTP endpoint is optional: its failure is logged and never stops the
	// host sink. End of input stops the HTTP server.
	p := pool.New().WithContext(ctx).WithCancelOnError()
	inputDone := make(chan struct{})
	p.Go(func(ctx context.Context) error {
		defer close(inputDone)
		return adapter.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	p.Go(func(ctx context.Context) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-inputDone:
				cancel()
			case <-runCtx.Done():
			}
		}()
		if err := srv.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Warn("metrics server stopped, still serving host notifications",
				"addr", addr,
				"error", err.Error(),
			)
		}
		return nil
	})
	return ignoreCanceled(p.Wait())
}

// ignoreCanceled treats a signal-driven shutdown as a clean exit. Other
// errors joined with the cancellation are kept.
func ignoreCanceled(err error) error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var rest []error
		for _, e := range joined.Unwrap() {
			if e = ignoreCanceled(e); e != nil {
				rest = append(rest, e)
			}
		}
		return errors.Join(rest...)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
