package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bringup/pkg/ament"
	"github.com/go-go-golems/bringup/pkg/config"
	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	Root    string
	Config  string
	Strict  bool
	Timeout time.Duration
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("root", "", "Workspace root holding .bringup.yaml and .bringup/ (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .bringup.yaml under --root)")
	root.PersistentFlags().Bool("strict", false, "Reject unrecognized LDS_MODEL values instead of using the default driver")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for stopping services")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	root, err := cmd.Root().PersistentFlags().GetString("root")
	if err != nil {
		return rootOptions{}, err
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(root)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}

	strict, err := cmd.Root().PersistentFlags().GetBool("strict")
	if err != nil {
		return rootOptions{}, err
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	return rootOptions{
		Root:    root,
		Config:  cfgPath,
		Strict:  strict,
		Timeout: timeout,
	}, nil
}

// planInputs carries everything needed to build a plan for one invocation.
type planInputs struct {
	opts rootOptions
	cfg  *config.File
	plan launch.Plan
}

// buildPlan loads config and builds the plan. Launch argument precedence is
// defaults < config launch_args < typed flags and --unset < positional
// name:=value. --unset drops config values only; a typed flag or positional
// value for the same name still applies.
func buildPlan(cmd *cobra.Command, args []string) (planInputs, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return planInputs{}, err
	}
	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return planInputs{}, err
	}

	flagOverrides, err := launch.ArgFlagOverrides(cmd.Flags())
	if err != nil {
		return planInputs{}, err
	}
	positional, err := patch.ParseAssignments(args)
	if err != nil {
		return planInputs{}, err
	}
	overrides := patch.Merge(patch.Merge(cfg.Overrides(), flagOverrides), positional)
	log.Debug().Strs("set", overrides.Keys()).Strs("unset", overrides.Unset).Msg("launch argument overrides")

	b := &launch.Builder{
		Env: launch.OSEnv{},
		Packages: ament.Chain{
			ament.Static(cfg.PackageDirs(opts.Root)),
			ament.NewIndex(os.Getenv(ament.PrefixPathEnv)),
		},
		StrictLidar: opts.Strict || cfg.StrictLidar,
	}
	plan, err := b.Build(overrides)
	if err != nil {
		return planInputs{}, err
	}
	return planInputs{opts: opts, cfg: cfg, plan: plan}, nil
}

func (in planInputs) services() (launch.ServicePlan, error) {
	return launch.Services(in.plan, launch.LowerOptions{
		Ros2:   in.cfg.Ros2Path(),
		Settle: in.cfg.SettleTime(),
	})
}

func planPath(root string) string {
	return filepath.Join(root, state.StateDirName, "plan.json")
}
