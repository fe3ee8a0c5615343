package launch

import (
	"strconv"

	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/spf13/pflag"
)

var argFlags = []struct {
	flag string
	arg  string
	bool bool
	help string
}{
	{"use-sim-time", ArgUseSimTime, true, "Use simulation (Gazebo) clock"},
	{"use-camera", ArgUseCamera, true, "Start the camera driver"},
	{"use-joystick", ArgUseJoystick, true, "Include the joystick sub-plan"},
	{"usb-port", ArgUSBPort, false, "Serial port of the OpenCR board"},
	{"tb3-params", ArgTB3Params, false, "Robot parameter file"},
	{"camera-params", ArgCameraParams, false, "Camera parameter file"},
}

const unsetFlag = "unset"

// AddArgFlags registers typed flags for the common launch arguments. They
// only take effect when set explicitly.
func AddArgFlags(fs *pflag.FlagSet) {
	for _, f := range argFlags {
		if f.bool {
			fs.Bool(f.flag, false, f.help)
			continue
		}
		fs.String(f.flag, "", f.help)
	}
	fs.StringArray(unsetFlag, nil, "Drop a launch argument set in .bringup.yaml so its default applies (repeatable)")
}

func ArgFlagOverrides(fs *pflag.FlagSet) (patch.Overrides, error) {
	out := patch.Overrides{Set: map[string]string{}}
	for _, f := range argFlags {
		fl := fs.Lookup(f.flag)
		if fl == nil || !fl.Changed {
			continue
		}
		if f.bool {
			v, err := fs.GetBool(f.flag)
			if err != nil {
				return patch.Overrides{}, err
			}
			out.Set[f.arg] = strconv.FormatBool(v)
			continue
		}
		v, err := fs.GetString(f.flag)
		if err != nil {
			return patch.Overrides{}, err
		}
		out.Set[f.arg] = v
	}
	if fl := fs.Lookup(unsetFlag); fl != nil && fl.Changed {
		unset, err := fs.GetStringArray(unsetFlag)
		if err != nil {
			return patch.Overrides{}, err
		}
		out.Unset = unset
	}
	return out, nil
}
