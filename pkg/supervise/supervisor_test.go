package supervise

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/stretchr/testify/require"
)

func waitDead(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for state.ProcessAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	require.False(t, state.ProcessAlive(pid))
}

func readPID(t *testing.T, path string) int {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var pid int
	_, err = fmt.Sscanf(string(b), "%d", &pid)
	require.NoError(t, err)
	require.Greater(t, pid, 0)
	return pid
}

func TestSupervisor_StartStop(t *testing.T) {
	root := t.TempDir()
	s := New(Options{Root: root, ShutdownTimeout: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := s.Start(ctx, launch.ServicePlan{Services: []launch.ServiceSpec{
		{Name: "state_publisher", Command: []string{"bash", "-c", "sleep 10"}},
		{Name: "hardware", Command: []string{"bash", "-c", "echo $TURTLEBOT3_MODEL; sleep 10"}, Env: map[string]string{"TURTLEBOT3_MODEL": "burger"}},
	}})
	require.NoError(t, err)
	require.Len(t, st.Services, 2)
	for _, svc := range st.Services {
		require.True(t, state.ProcessAlive(svc.PID))
	}

	require.Eventually(t, func() bool {
		b, _ := os.ReadFile(st.Services[1].StdoutLog)
		return string(b) == "burger\n"
	}, 2*time.Second, 20*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx, st))
	for _, svc := range st.Services {
		waitDead(t, svc.PID)
	}
}

func TestSupervisor_MissingDeviceStopsStartedServices(t *testing.T) {
	root := t.TempDir()
	s := New(Options{Root: root, DeviceTimeout: 300 * time.Millisecond, ShutdownTimeout: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pidFile := filepath.Join(root, "pid.txt")
	_, err := s.Start(ctx, launch.ServicePlan{Services: []launch.ServiceSpec{
		{Name: "state_publisher", Command: []string{"bash", "-c", "echo $$ > " + pidFile + "; sleep 10"}},
		{Name: "hardware", Command: []string{"sleep", "10"}, Devices: []string{filepath.Join(root, "ttyACM0")}},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "hardware")
	require.Contains(t, err.Error(), "not present")

	require.Eventually(t, func() bool {
		_, err := os.Stat(pidFile)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	waitDead(t, readPID(t, pidFile))
}

func TestSupervisor_WaitsForLateDevice(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "ttyUSB0")
	s := New(Options{Root: root, DeviceTimeout: 3 * time.Second})

	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = os.WriteFile(dev, nil, 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := s.Start(ctx, launch.ServicePlan{Services: []launch.ServiceSpec{
		{Name: "lidar", Command: []string{"sleep", "10"}, Devices: []string{dev}},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{dev}, st.Services[0].Devices)
	require.NoError(t, s.Stop(context.Background(), st))
}

func TestSupervisor_SettleDetectsEarlyExit(t *testing.T) {
	root := t.TempDir()
	bus, err := events.NewInMemoryBus()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := bus.Subscriber.Subscribe(ctx, events.Topic)
	require.NoError(t, err)

	s := New(Options{Root: root, Events: bus.Publisher})
	_, err = s.Start(ctx, launch.ServicePlan{Services: []launch.ServiceSpec{
		{Name: "hardware", Command: []string{"bash", "-c", "echo 'failed to open port /dev/ttyACM0' >&2; exit 1"}, SettleMs: 1000},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open port")

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case msg := <-ch:
			msg.Ack()
			env, err := events.Decode(msg)
			require.NoError(t, err)
			seen[env.Type] = true
		case <-ctx.Done():
			t.Fatalf("missing events, got %v", seen)
		}
	}
	require.True(t, seen[events.TypeServiceStarted])
	require.True(t, seen[events.TypeServiceFailed])
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	require.Equal(t, base, MergeEnv(base, nil))
	out := MergeEnv(base, map[string]string{"LDS_MODEL": "LDS-02"})
	require.Equal(t, []string{"PATH=/usr/bin", "LDS_MODEL=LDS-02"}, out)
	require.Len(t, base, 1)
}
