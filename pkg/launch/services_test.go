package launch

import (
	"testing"
	"time"

	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/stretchr/testify/require"
)

func TestServices_Default(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(patch.Overrides{})
	require.NoError(t, err)

	sp, err := Services(p, LowerOptions{Ros2: "/opt/ros/humble/bin/ros2", Settle: 2 * time.Second})
	require.NoError(t, err)

	var names []string
	for _, s := range sp.Services {
		names = append(names, s.Name)
		require.Equal(t, "burger", s.Env[EnvModel])
		require.Equal(t, "LDS-01", s.Env[EnvLidar])
		require.EqualValues(t, 2000, s.SettleMs)
	}
	require.Equal(t, []string{"state_publisher", "joystick", "lidar", "camera", "hardware"}, names)

	require.Equal(t, []string{
		"/opt/ros/humble/bin/ros2", "launch",
		"/opt/ros/share/hls_lfcd_lds_driver/launch/hlds_laser.launch.py",
		"frame_id:=base_scan", "port:=/dev/ttyUSB0",
	}, sp.Services[2].Command)
	require.Equal(t, []string{"/dev/ttyUSB0"}, sp.Services[2].Devices)

	require.Equal(t, []string{
		"/opt/ros/humble/bin/ros2", "run", "turtlebot3_node", "turtlebot3_ros",
		"-i", "/dev/ttyACM0",
		"--ros-args", "--params-file", "/opt/ros/share/turtlebot3_bringup/param/burger.yaml",
	}, sp.Services[4].Command)
	require.Equal(t, []string{"/dev/ttyACM0"}, sp.Services[4].Devices)
}

func TestServices_SkipsDisabled(t *testing.T) {
	p, err := newBuilder("burger", "YDLIDAR-G4").Build(set(ArgUseCamera, "false", ArgUseJoystick, "false"))
	require.NoError(t, err)

	sp, err := Services(p, LowerOptions{})
	require.NoError(t, err)
	require.Len(t, sp.Services, 3)
	require.Equal(t, "state_publisher", sp.Services[0].Name)
	require.Equal(t, []string{"ros2", "launch",
		"/opt/ros/share/turtlebot3_bringup/launch/turtlebot3_state_publisher.launch.py",
		"use_sim_time:=false"}, sp.Services[0].Command)
	require.Equal(t, "lidar", sp.Services[1].Name)
	require.Empty(t, sp.Services[1].Devices)
	require.Equal(t, "hardware", sp.Services[2].Name)
}

func TestServices_NonDevicePortHasNoDevice(t *testing.T) {
	p, err := newBuilder("burger", "LDS-01").Build(set(ArgUSBPort, "ttyACM0"))
	require.NoError(t, err)
	sp, err := Services(p, LowerOptions{})
	require.NoError(t, err)
	hw := sp.Services[len(sp.Services)-1]
	require.Equal(t, NameHardware, hw.Name)
	require.Empty(t, hw.Devices)
}

func TestServices_EnvNotShared(t *testing.T) {
	p, err := newBuilder("burger", "LDS-02").Build(patch.Overrides{})
	require.NoError(t, err)
	sp, err := Services(p, LowerOptions{})
	require.NoError(t, err)
	require.Greater(t, len(sp.Services), 1)

	sp.Services[0].Env["ROS_DOMAIN_ID"] = "30"
	sp.Services[0].Env[EnvLidar] = "changed"
	for _, s := range sp.Services[1:] {
		require.Equal(t, map[string]string{EnvModel: "burger", EnvLidar: "LDS-02"}, s.Env, s.Name)
	}
}
