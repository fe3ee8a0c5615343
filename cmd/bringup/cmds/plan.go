package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type planOutput struct {
	Plan     launch.Plan        `json:"plan" yaml:"plan"`
	Services launch.ServicePlan `json:"services" yaml:"services"`
}

func newPlanCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan [name:=value...]",
		Short: "Build the launch plan from the environment and launch arguments and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildPlan(cmd, args)
			if err != nil {
				return err
			}
			services, err := in.services()
			if err != nil {
				return err
			}
			return writePlan(cmd, output, planOutput{Plan: in.plan, Services: services})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json|yaml)")
	launch.AddArgFlags(cmd.Flags())
	return cmd
}

func writePlan(cmd *cobra.Command, format string, out planOutput) error {
	var b []byte
	var err error
	switch format {
	case "json":
		b, err = json.MarshalIndent(out, "", "  ")
	case "yaml":
		b, err = yaml.Marshal(out)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
