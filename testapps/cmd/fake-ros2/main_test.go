package main

import (
	"bytes"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/go-go-golems/bringup/pkg/logfilter"
	"github.com/stretchr/testify/require"
)

func TestConsoleLine_ParsesAsROSOutput(t *testing.T) {
	at := time.Unix(1700000000, 123456789)
	l := logfilter.Parse(consoleLine("WARN", "turtlebot3_ros", "battery low", at))
	require.True(t, l.Parsed)
	require.Equal(t, "WARN", l.Level)
	require.Equal(t, "turtlebot3_ros", l.Logger)
	require.Equal(t, "battery low", l.Message)
	require.True(t, at.Equal(l.Time))
}

func TestLoggerName(t *testing.T) {
	require.Equal(t, "hlds_laser", loggerName([]string{"launch", "/share/hls_lfcd_lds_driver/launch/hlds_laser.launch.py", "port:=/dev/ttyUSB0"}))
	require.Equal(t, "turtlebot3_ros", loggerName([]string{"run", "turtlebot3_node", "turtlebot3_ros", "-i", "/dev/ttyACM0"}))
	require.Equal(t, "ros2", loggerName([]string{"doctor"}))
}

func TestCrashCode(t *testing.T) {
	args := []string{"run", "turtlebot3_node", "turtlebot3_ros"}

	code, ok := crashCode("turtlebot3_ros:3", args)
	require.True(t, ok)
	require.Equal(t, 3, code)

	code, ok = crashCode("turtlebot3_ros", args)
	require.True(t, ok)
	require.Equal(t, 1, code)

	_, ok = crashCode("v4l2_camera", args)
	require.False(t, ok)

	_, ok = crashCode("", args)
	require.False(t, ok)
}

func TestRun_StopsOnSignal(t *testing.T) {
	t.Setenv(CrashEnv, "")
	var buf bytes.Buffer
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	code := run([]string{"launch", "/x/joystick.launch.py", "use_sim_time:=false"}, &buf, time.Hour, time.Hour, stop)
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	l := logfilter.Parse(lines[1])
	require.Equal(t, "joystick", l.Logger)
	require.Equal(t, "argument use_sim_time = false", l.Message)
}

func TestRun_Crash(t *testing.T) {
	t.Setenv(CrashEnv, "joystick:4")
	var buf bytes.Buffer
	code := run([]string{"launch", "/x/joystick.launch.py"}, &buf, time.Hour, 10*time.Millisecond, make(chan os.Signal))
	require.Equal(t, 4, code)
	require.Contains(t, buf.String(), "[ERROR]")
}
