package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/console"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/relay"
)

// newLauncher is swapped in tests.
var newLauncher = func(cfg config.Interface, logger *zap.Logger) browser.Launcher {
	return browser.NewLauncher(cfg, logger)
}

// components is one run's wiring, shared by run and tui.
type components struct {
	relay      *relay.Relay
	history    *relay.History
	controller *dispatch.Controller
}

func newComponents(cfg config.Interface, logger *zap.Logger) components {
	ui := cfg.UI()
	rl := relay.New(ui.SourceTag, logger)
	state := &dispatch.RunState{}
	engine := dispatch.NewEngine(cfg, newLauncher(cfg, logger), rl, state, logger)
	return components{
		relay:      rl,
		history:    relay.NewHistory(ui.HistorySize),
		controller: dispatch.NewController(engine, state),
	}
}

func newRunCmd() *cobra.Command {
	var (
		flags jobFlags
		recap bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send the message queue and stream progress to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			job, creds, err := flags.resolve(cfg, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sum, err := runDispatch(cmd.Context(), cfg, job, creds, cmd.OutOrStdout(), recap)
			if err != nil {
				return err
			}
			if sum.Terminal == dispatch.TerminalFailed {
				return fmt.Errorf("run failed: %w", sum.Err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&recap, "recap", false, "print the most recent log lines, newest first, when the run ends")
	return cmd
}

// runDispatch starts the worker and runs the console loop until the worker's
// sentinel is drained. Cancelling ctx requests a stop; the loop keeps
// draining until the worker has closed the browser. With recap set, the
// newest ui.display_size records are reprinted newest first at the end.
func runDispatch(ctx context.Context, cfg config.Interface, job dispatch.Job, creds string, out io.Writer, recap bool) (dispatch.Summary, error) {
	logger := observability.GetLogger()
	c := newComponents(cfg, logger)

	if err := c.controller.Start(ctx, job, creds); err != nil {
		return dispatch.Summary{}, err
	}
	stop := context.AfterFunc(ctx, func() { c.controller.Stop() })
	defer stop()

	loop := console.New(c.relay, c.history, out, cfg.UI().RedrawInterval)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		c.controller.Wait()
		return nil
	})
	if err := g.Wait(); err != nil {
		return dispatch.Summary{}, err
	}

	if recap {
		fmt.Fprintln(out, "--- recent activity (newest first) ---")
		if err := console.PrintRecent(out, c.history, cfg.UI().DisplaySize); err != nil {
			return dispatch.Summary{}, fmt.Errorf("failed to print recap: %w", err)
		}
	}

	sum, _ := c.controller.Last()
	logger.Info("Dispatch finished.",
		zap.String("run_id", sum.RunID),
		zap.Stringer("terminal", sum.Terminal),
		zap.Int("sent", sum.Sent()),
	)
	return sum, nil
}
