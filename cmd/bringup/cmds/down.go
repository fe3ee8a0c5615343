package cmds

import (
	"fmt"

	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop all supervised services and remove state",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			if !state.Exists(opts.Root) {
				log.Info().Str("root", opts.Root).Msg("no state; nothing to stop")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			if err := stopFromState(cmd.Context(), opts); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
