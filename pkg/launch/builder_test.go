package launch

import (
	"testing"

	"github.com/go-go-golems/bringup/pkg/ament"
	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var testPackages = ament.Static{
	"turtlebot3_bringup":  "/opt/ros/share/turtlebot3_bringup",
	"hls_lfcd_lds_driver": "/opt/ros/share/hls_lfcd_lds_driver",
	"ld08_driver":         "/opt/ros/share/ld08_driver",
	"ydlidar_ros2_driver": "/opt/ros/share/ydlidar_ros2_driver",
}

func newBuilder(model, lidar string) *Builder {
	return &Builder{
		Env:      MapEnv{EnvModel: model, EnvLidar: lidar},
		Packages: testPackages,
	}
}

func set(kv ...string) patch.Overrides {
	o := patch.Overrides{Set: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set[kv[i]] = kv[i+1]
	}
	return o
}

func TestBuild_DirectiveOrder(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(patch.Overrides{})
	require.NoError(t, err)

	var got []string
	for _, d := range p.Directives {
		got = append(got, string(d.Kind)+":"+d.Name)
	}
	require.Equal(t, []string{
		"declare-argument:use_sim_time",
		"declare-argument:use_camera",
		"declare-argument:use_joystick",
		"declare-argument:usb_port",
		"declare-argument:tb3_params",
		"include-subplan:state_publisher",
		"include-subplan:joystick",
		"include-subplan:lidar",
		"launch-process:camera",
		"launch-process:hardware",
	}, got)
}

func TestBuild_Defaults(t *testing.T) {
	p, err := newBuilder("waffle_pi", "LDS-01").Build(patch.Overrides{})
	require.NoError(t, err)

	require.Equal(t, "false", p.Args[ArgUseSimTime])
	require.Equal(t, "true", p.Args[ArgUseCamera])
	require.Equal(t, "true", p.Args[ArgUseJoystick])
	require.Equal(t, "/dev/ttyACM0", p.Args[ArgUSBPort])
	require.Equal(t, "/opt/ros/share/turtlebot3_bringup/param/waffle_pi.yaml", p.Args[ArgTB3Params])
	require.Equal(t, "/opt/ros/share/turtlebot3_bringup/param/v4l2_camera.yaml", p.Args[ArgCameraParams])

	sp, ok := p.Find(NameStatePublisher)
	require.True(t, ok)
	require.True(t, sp.Enabled())
	require.Equal(t, "/opt/ros/share/turtlebot3_bringup/launch/turtlebot3_state_publisher.launch.py", sp.Source)
	require.Equal(t, []Binding{{Name: "use_sim_time", Value: "false"}}, sp.Arguments)

	declared := p.Declared()
	require.Len(t, declared, 5)
	require.Equal(t, "Connected USB port with OpenCR", declared[3].Description)
	require.Equal(t, "/dev/ttyACM0", declared[3].Default)
}

func TestBuild_LidarSelection(t *testing.T) {
	portArgs := []Binding{{Name: "port", Value: "/dev/ttyUSB0"}, {Name: "frame_id", Value: "base_scan"}}
	cases := []struct {
		lidar    string
		source   string
		args     []Binding
		fallback bool
	}{
		{"LDS-01", "/opt/ros/share/hls_lfcd_lds_driver/launch/hlds_laser.launch.py", portArgs, false},
		{"LDS-02", "/opt/ros/share/ld08_driver/launch/ld08.launch.py", portArgs, false},
		{"YDLIDAR-G4", "/opt/ros/share/ydlidar_ros2_driver/launch/ydlidar_launch.py",
			[]Binding{{Name: "params_file", Value: "/opt/ros/share/turtlebot3_bringup/param/ydlidar.yaml"}}, false},
		{"RPLIDAR-A1", "/opt/ros/share/hls_lfcd_lds_driver/launch/hlds_laser.launch.py", portArgs, true},
		{"", "/opt/ros/share/hls_lfcd_lds_driver/launch/hlds_laser.launch.py", portArgs, true},
	}
	for _, tc := range cases {
		t.Run(tc.lidar, func(t *testing.T) {
			p, err := newBuilder("burger", tc.lidar).Build(patch.Overrides{})
			require.NoError(t, err)
			d := p.LidarInclude()
			require.Equal(t, KindIncludeSubplan, d.Kind)
			require.Equal(t, tc.source, d.Source)
			require.Equal(t, tc.args, d.Arguments)
			require.Nil(t, d.Condition)
			require.Equal(t, tc.fallback, p.LidarFallback)

			n := 0
			for _, dd := range p.Directives {
				if dd.Name == NameLidar {
					n++
				}
			}
			require.Equal(t, 1, n)
		})
	}
}

func TestBuild_StrictLidarRejectsUnknown(t *testing.T) {
	b := newBuilder("burger", "RPLIDAR-A1")
	b.StrictLidar = true
	_, err := b.Build(patch.Overrides{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownLidar))
}

func TestBuild_LidarPkgDirOverride(t *testing.T) {
	p, err := newBuilder("burger", "LDS-02").Build(set(ArgLidarPkgDir, "/home/robot/ws/src/ld08_driver/launch"))
	require.NoError(t, err)
	require.Equal(t, "/home/robot/ws/src/ld08_driver/launch/ld08.launch.py", p.LidarInclude().Source)
}

func TestBuild_CameraToggle(t *testing.T) {
	p, err := newBuilder("waffle", "LDS-01").Build(set(ArgUseCamera, "false"))
	require.NoError(t, err)
	cam, ok := p.Find(NameCamera)
	require.True(t, ok)
	require.False(t, cam.Enabled())
	for _, d := range p.Enabled() {
		require.NotEqual(t, NameCamera, d.Name)
	}

	p, err = newBuilder("waffle", "LDS-01").Build(set(ArgUseCamera, "True"))
	require.NoError(t, err)
	cam, _ = p.Find(NameCamera)
	require.True(t, cam.Enabled())
	require.Equal(t, "v4l2_camera", cam.Package)
	require.Equal(t, "v4l2_camera_node", cam.Executable)
	require.Equal(t, []string{"/opt/ros/share/turtlebot3_bringup/param/v4l2_camera.yaml"}, cam.Parameters)
	require.Equal(t, "screen", cam.Output)
}

func TestBuild_JoystickToggle(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(set(ArgUseJoystick, "0"))
	require.NoError(t, err)
	js, ok := p.Find(NameJoystick)
	require.True(t, ok, "joystick include must stay in the plan")
	require.False(t, js.Enabled())
	require.Equal(t, &Condition{Argument: ArgUseJoystick, Value: "0", Enabled: false}, js.Condition)

	p, err = newBuilder("burger", "LDS-01").Build(patch.Overrides{})
	require.NoError(t, err)
	js, _ = p.Find(NameJoystick)
	require.True(t, js.Enabled())
}

func TestBuild_HardwareAlwaysPresent(t *testing.T) {
	for _, o := range []patch.Overrides{
		{},
		set(ArgUseCamera, "false", ArgUseJoystick, "false"),
		set(ArgUseSimTime, "true"),
	} {
		p, err := newBuilder("burger", "LDS-02").Build(o)
		require.NoError(t, err)
		hw, ok := p.Find(NameHardware)
		require.True(t, ok)
		require.True(t, hw.Enabled())
		require.Equal(t, "turtlebot3_node", hw.Package)
		require.Equal(t, "turtlebot3_ros", hw.Executable)
		require.Equal(t, []string{"/opt/ros/share/turtlebot3_bringup/param/burger.yaml"}, hw.Parameters)
		require.Equal(t, []string{"-i", "/dev/ttyACM0"}, hw.Args)
	}
}

func TestBuild_USBPortOverridePropagates(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(set(ArgUSBPort, "/dev/ttyUSB1", ArgTB3Params, "/tmp/custom.yaml"))
	require.NoError(t, err)
	hw, _ := p.Find(NameHardware)
	require.Equal(t, []string{"-i", "/dev/ttyUSB1"}, hw.Args)
	require.Equal(t, []string{"/tmp/custom.yaml"}, hw.Parameters)

	decl := p.Declared()[3]
	require.Equal(t, ArgUSBPort, decl.Name)
	require.Equal(t, "/dev/ttyACM0", decl.Default)
	require.Equal(t, "/dev/ttyUSB1", decl.Value)
}

func TestBuild_SimTimeReachesIncludes(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(set(ArgUseSimTime, "true"))
	require.NoError(t, err)
	for _, name := range []string{NameStatePublisher, NameJoystick} {
		d, _ := p.Find(name)
		v, ok := d.Argument(ArgUseSimTime)
		require.True(t, ok)
		require.Equal(t, "true", v)
	}
}

func TestBuild_MissingEnvAborts(t *testing.T) {
	b := &Builder{Env: MapEnv{EnvLidar: "LDS-01"}, Packages: testPackages}
	p, err := b.Build(patch.Overrides{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingEnv))
	require.Contains(t, err.Error(), EnvModel)
	require.Empty(t, p.Directives)

	b = &Builder{Env: MapEnv{EnvModel: "burger"}, Packages: testPackages}
	_, err = b.Build(patch.Overrides{})
	require.True(t, errors.Is(err, ErrMissingEnv))
	require.Contains(t, err.Error(), EnvLidar)
}

func TestBuild_InvalidToggle(t *testing.T) {
	_, err := newBuilder("burger", "LDS-01").Build(set(ArgUseCamera, "yes"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidToggle))
	require.Contains(t, err.Error(), ArgUseCamera)
}

func TestBuild_MissingPackage(t *testing.T) {
	b := &Builder{
		Env:      MapEnv{EnvModel: "burger", EnvLidar: "YDLIDAR-G4"},
		Packages: ament.Static{"turtlebot3_bringup": "/opt/ros/share/turtlebot3_bringup"},
	}
	_, err := b.Build(patch.Overrides{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ament.ErrPackageNotFound))
}

func TestBuild_UnknownOverrideKept(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(set("namespace", "tb3_0"))
	require.NoError(t, err)
	require.Equal(t, "tb3_0", p.Args["namespace"])
}

func TestPlan_SaveLoad(t *testing.T) {
	p, err := newBuilder("burger", "LDS-02").Build(set(ArgUseCamera, "false"))
	require.NoError(t, err)

	path := t.TempDir() + "/nested/plan.json"
	require.NoError(t, p.Save(path))
	loaded, err := LoadPlan(path)
	require.NoError(t, err)
	require.Equal(t, p, *loaded)
}

func TestBuild_UnsetOverrideRestoresDefault(t *testing.T) {
	fromConfig := set(ArgUSBPort, "/dev/ttyUSB1", ArgUseCamera, "false")
	o := patch.Merge(fromConfig, patch.Overrides{Unset: []string{ArgUSBPort}})

	p, err := newBuilder("burger", "LDS-01").Build(o)
	require.NoError(t, err)
	require.Equal(t, DefaultUSBPort, p.Args[ArgUSBPort])
	require.Equal(t, "false", p.Args[ArgUseCamera])

	hw, ok := p.Find(NameHardware)
	require.True(t, ok)
	require.Equal(t, []string{"-i", "/dev/ttyACM0"}, hw.Args)
}
