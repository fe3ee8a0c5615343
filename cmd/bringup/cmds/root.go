package cmds

import "github.com/spf13/cobra"

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newPlanCmd())
	root.AddCommand(newDoctorCmd())

	root.AddCommand(newUpCmd())
	root.AddCommand(newDownCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newWrapServiceCmd())
	return nil
}
