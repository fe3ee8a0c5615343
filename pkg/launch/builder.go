// Package launch builds the robot bringup launch plan: which sub-plans to
// include and which processes to start, with which arguments.
package launch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-go-golems/bringup/pkg/ament"
	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const BringupPackage = "turtlebot3_bringup"

// Launch argument names.
const (
	ArgUseSimTime   = "use_sim_time"
	ArgUseCamera    = "use_camera"
	ArgUseJoystick  = "use_joystick"
	ArgUSBPort      = "usb_port"
	ArgTB3Params    = "tb3_params"
	ArgCameraParams = "camera_params"
	ArgLidarPkgDir  = "lidar_pkg_dir"
)

// Directive names for includes and processes.
const (
	NameStatePublisher = "state_publisher"
	NameJoystick       = "joystick"
	NameLidar          = "lidar"
	NameCamera         = "camera"
	NameHardware       = "hardware"
)

const DefaultUSBPort = "/dev/ttyACM0"

var (
	ErrMissingEnv    = errors.New("missing required environment variable")
	ErrUnknownLidar  = errors.New("unknown lidar model")
	ErrInvalidToggle = errors.New("invalid boolean launch argument")
)

type Builder struct {
	Env      Env
	Packages ament.Resolver
	// StrictLidar rejects unrecognized lidar ids instead of falling back.
	StrictLidar bool
}

func (b *Builder) Build(o patch.Overrides) (Plan, error) {
	if b.Env == nil {
		return Plan{}, errors.New("missing Env")
	}
	if b.Packages == nil {
		return Plan{}, errors.New("missing package resolver")
	}

	model, err := requireEnv(b.Env, EnvModel)
	if err != nil {
		return Plan{}, err
	}
	lidarID, err := requireEnv(b.Env, EnvLidar)
	if err != nil {
		return Plan{}, err
	}

	driver, known := LookupLidar(lidarID)
	if !known {
		if b.StrictLidar {
			return Plan{}, errors.Wrapf(ErrUnknownLidar, "%q (known: %s)", lidarID, strings.Join(KnownLidars(), ", "))
		}
		log.Warn().Str("lidar", lidarID).Str("driver", driver.Package).Msg("unrecognized lidar model, using default driver")
	}

	bringupShare, err := b.Packages.ShareDirectory(BringupPackage)
	if err != nil {
		return Plan{}, errors.Wrap(err, "resolve bringup package")
	}
	lidarShare, err := b.Packages.ShareDirectory(driver.Package)
	if err != nil {
		return Plan{}, errors.Wrap(err, "resolve lidar driver package")
	}

	defaults := patch.Args{
		ArgUseSimTime:   "false",
		ArgUseCamera:    "true",
		ArgUseJoystick:  "true",
		ArgUSBPort:      DefaultUSBPort,
		ArgTB3Params:    filepath.Join(bringupShare, "param", model+".yaml"),
		ArgCameraParams: filepath.Join(bringupShare, "param", "v4l2_camera.yaml"),
		ArgLidarPkgDir:  filepath.Join(lidarShare, "launch"),
	}
	args, err := resolveArgs(defaults, o)
	if err != nil {
		return Plan{}, err
	}

	joystick, err := condition(args, ArgUseJoystick)
	if err != nil {
		return Plan{}, err
	}
	camera, err := condition(args, ArgUseCamera)
	if err != nil {
		return Plan{}, err
	}

	launchDir := filepath.Join(bringupShare, "launch")
	simTime := []Binding{{Name: ArgUseSimTime, Value: args[ArgUseSimTime]}}

	var lidarArgs []Binding
	if driver.ParamsFile != "" {
		lidarArgs = []Binding{{Name: "params_file", Value: filepath.Join(bringupShare, "param", driver.ParamsFile)}}
	} else {
		lidarArgs = []Binding{{Name: "port", Value: DefaultLidarPort}, {Name: "frame_id", Value: "base_scan"}}
	}

	directives := []Directive{
		declare(ArgUseSimTime, defaults, args, "Use simulation (Gazebo) clock if true"),
		declare(ArgUseCamera, defaults, args, "Use camera if true"),
		declare(ArgUseJoystick, defaults, args, "Use joystick if true"),
		declare(ArgUSBPort, defaults, args, "Connected USB port with OpenCR"),
		declare(ArgTB3Params, defaults, args, "Full path to turtlebot3 parameter file to load"),
		{
			Kind:      KindIncludeSubplan,
			Name:      NameStatePublisher,
			Package:   BringupPackage,
			Source:    filepath.Join(launchDir, "turtlebot3_state_publisher.launch.py"),
			Arguments: simTime,
		},
		{
			Kind:      KindIncludeSubplan,
			Name:      NameJoystick,
			Package:   BringupPackage,
			Source:    filepath.Join(launchDir, "joystick.launch.py"),
			Arguments: simTime,
			Condition: joystick,
		},
		{
			Kind:      KindIncludeSubplan,
			Name:      NameLidar,
			Package:   driver.Package,
			Source:    filepath.Join(args[ArgLidarPkgDir], driver.LaunchFile),
			Arguments: lidarArgs,
		},
		{
			Kind:       KindLaunchProcess,
			Name:       NameCamera,
			Package:    "v4l2_camera",
			Executable: "v4l2_camera_node",
			Parameters: []string{args[ArgCameraParams]},
			Output:     "screen",
			Condition:  camera,
		},
		{
			Kind:       KindLaunchProcess,
			Name:       NameHardware,
			Package:    "turtlebot3_node",
			Executable: "turtlebot3_ros",
			Parameters: []string{args[ArgTB3Params]},
			Args:       []string{"-i", args[ArgUSBPort]},
			Output:     "screen",
		},
	}

	return Plan{
		Model:         model,
		Lidar:         lidarID,
		LidarFallback: !known,
		Args:          args,
		Directives:    directives,
	}, nil
}

func requireEnv(env Env, key string) (string, error) {
	v, ok := env.LookupEnv(key)
	if !ok {
		return "", errors.Wrap(ErrMissingEnv, key)
	}
	return v, nil
}

// resolveArgs layers overrides on top of defaults. Unset only drops an
// override, so every default key always resolves.
func resolveArgs(defaults patch.Args, o patch.Overrides) (patch.Args, error) {
	set, err := patch.Apply(patch.Args{}, o)
	if err != nil {
		return nil, err
	}
	out := patch.Args{}
	for k, v := range defaults {
		out[k] = v
	}
	var unknown []string
	for k, v := range set {
		if _, ok := defaults[k]; !ok {
			unknown = append(unknown, k)
		}
		out[k] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		log.Warn().Strs("args", unknown).Msg("launch arguments not used by this plan")
	}
	return out, nil
}

func declare(name string, defaults, args patch.Args, description string) Directive {
	return Directive{
		Kind:        KindDeclareArgument,
		Name:        name,
		Default:     defaults[name],
		Value:       args[name],
		Description: description,
	}
}

func condition(args patch.Args, name string) (*Condition, error) {
	v := args[name]
	enabled, err := ParseToggle(v)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return &Condition{Argument: name, Value: v, Enabled: enabled}, nil
}

// ParseToggle accepts the values a launch IfCondition accepts.
func ParseToggle(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, errors.Wrapf(ErrInvalidToggle, "%q (expected true, false, 1 or 0)", v)
}
