package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/tui"
)

// newProgram is swapped in tests.
var newProgram = func(m tea.Model, opts ...tea.ProgramOption) interface{ Run() (tea.Model, error) } {
	return tea.NewProgram(m, opts...)
}

func newTUICmd() *cobra.Command {
	var (
		flags     jobFlags
		autoStart bool
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard with start and stop controls",
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

			c := newComponents(cfg, observability.GetLogger())
			ui := cfg.UI()
			model := tui.New(cmd.Context(), c.controller, c.relay, c.history, tui.Options{
				Job:            job,
				RawCredentials: creds,
				RedrawInterval: ui.RedrawInterval,
				DisplaySize:    ui.DisplaySize,
				AutoStart:      autoStart,
			})

			_, runErr := newProgram(model, tea.WithAltScreen(), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout())).Run()
			// The program can exit under a live worker on a terminal error.
			c.controller.Stop()
			c.controller.Wait()
			if runErr != nil {
				return fmt.Errorf("dashboard failed: %w", runErr)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&autoStart, "start", false, "start sending immediately")
	return cmd
}
