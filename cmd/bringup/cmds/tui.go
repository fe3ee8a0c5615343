package cmds

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/tui"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTuiCmd() *cobra.Command {
	var refresh time.Duration
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard for the running bringup",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			var plan *launch.Plan
			if p, err := launch.LoadPlan(planPath(opts.Root)); err == nil {
				plan = p
			} else if !os.IsNotExist(errors.Cause(err)) {
				log.Warn().Err(err).Msg("could not load saved plan")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bus, err := events.NewInMemoryBus()
			if err != nil {
				return err
			}

			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(tui.NewModel(plan), programOptions...)
			tui.RegisterForwarder(bus, program)

			watcher := &events.StateWatcher{
				Root:     opts.Root,
				Interval: refresh,
				Pub:      bus.Publisher,
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				err := watcher.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				_, err := program.Run()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "tui")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 1*time.Second, "Refresh interval for state polling")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	return cmd
}
