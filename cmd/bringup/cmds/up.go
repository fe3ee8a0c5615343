package cmds

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/go-go-golems/bringup/pkg/supervise"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newUpCmd() *cobra.Command {
	var force bool
	var follow bool
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "up [name:=value...]",
		Short: "Build the launch plan and start its services",
		Long: "Build the launch plan and start its services under supervision.\n" +
			"With --follow, lifecycle events are printed as JSON lines until interrupted,\n" +
			"at which point all services are stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildPlan(cmd, args)
			if err != nil {
				return err
			}
			opts := in.opts

			if state.Exists(opts.Root) {
				if !force {
					return errors.New("state exists; run bringup down first or use --force")
				}
				log.Info().Msg("existing state found; stopping first (--force)")
				if err := stopFromState(cmd.Context(), opts); err != nil {
					return err
				}
			}

			services, err := in.services()
			if err != nil {
				return err
			}

			supOpts := supervise.Options{
				Root:            opts.Root,
				ShutdownTimeout: opts.Timeout,
				DeviceTimeout:   in.cfg.DeviceWait(),
			}
			if in.cfg.UseWrapper() {
				exe, err := os.Executable()
				if err != nil {
					return errors.Wrap(err, "resolve executable")
				}
				supOpts.WrapperExe = exe
			}

			if !follow {
				sup := supervise.New(supOpts)
				if _, err := startAndSave(cmd.Context(), sup, in.plan, services, opts.Root); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus, err := events.NewInMemoryBus()
			if err != nil {
				return err
			}
			events.RegisterPrinter(bus, cmd.OutOrStdout())

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			select {
			case <-bus.Running():
			case <-egCtx.Done():
				return eg.Wait()
			}

			supOpts.Events = bus.Publisher
			sup := supervise.New(supOpts)
			st, err := startAndSave(egCtx, sup, in.plan, services, opts.Root)
			if err != nil {
				stop()
				_ = eg.Wait()
				return err
			}

			watcher := &events.StateWatcher{
				Root:          opts.Root,
				Interval:      refresh,
				Pub:           bus.Publisher,
				SkipSnapshots: true,
			}
			eg.Go(func() error {
				return watcher.Run(egCtx)
			})

			waitErr := eg.Wait()

			log.Info().Msg("stopping services")
			stopCtx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
			defer cancel()
			_ = sup.Stop(stopCtx, st)
			if err := removeState(opts.Root); err != nil {
				return err
			}
			if waitErr != nil {
				return errors.Wrap(waitErr, "follow")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Stop existing state before starting")
	cmd.Flags().BoolVar(&follow, "follow", false, "Stay in the foreground printing events; stop services on exit")
	cmd.Flags().DurationVar(&refresh, "refresh", 1*time.Second, "State polling interval for --follow")
	launch.AddArgFlags(cmd.Flags())
	return cmd
}

func startAndSave(ctx context.Context, sup *supervise.Supervisor, plan launch.Plan, services launch.ServicePlan, root string) (*state.State, error) {
	st, err := sup.Start(ctx, services)
	if err != nil {
		return nil, err
	}
	st.Model = plan.Model
	st.Lidar = plan.Lidar
	st.Args = plan.Args
	if err := state.Save(root, st); err != nil {
		_ = sup.Stop(context.Background(), st)
		return nil, err
	}
	if err := plan.Save(planPath(root)); err != nil {
		log.Warn().Err(err).Msg("could not save plan")
	}
	log.Info().Int("services", len(st.Services)).Str("model", plan.Model).Str("lidar", plan.Lidar).Msg("up complete")
	return st, nil
}

func stopFromState(ctx context.Context, opts rootOptions) error {
	st, err := state.Load(opts.Root)
	if err != nil {
		return err
	}
	sup := supervise.New(supervise.Options{Root: opts.Root, ShutdownTimeout: opts.Timeout})
	stopCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	_ = sup.Stop(stopCtx, st)
	return removeState(opts.Root)
}

func removeState(root string) error {
	if err := os.Remove(planPath(root)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("remove plan")
	}
	return state.Remove(root)
}
