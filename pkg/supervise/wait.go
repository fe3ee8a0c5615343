package supervise

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
)

// waitDevice polls until path exists. USB serial adapters can take a moment
// to show up after power-on.
func waitDevice(ctx context.Context, path string) error {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "device %s not present", path)
		case <-t.C:
		}
	}
}

// settle fails if the service dies within d of starting, which is how a
// driver reports a busy or missing port.
func settle(ctx context.Context, rec state.ServiceRecord, d time.Duration) error {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	for {
		if !state.ProcessAlive(rec.PID) {
			msg := "exited during startup"
			if info, err := state.ReadExitInfo(rec.ExitInfo); err == nil && info != nil {
				msg = info.Summary()
			}
			if lines, err := state.TailLines(rec.StderrLog, 5, 0); err == nil && len(lines) > 0 {
				return errors.Errorf("service %q %s: %s", rec.Name, msg, lines[len(lines)-1])
			}
			return errors.Errorf("service %q %s", rec.Name, msg)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-t.C:
		}
	}
}

func terminatePIDGroup(ctx context.Context, pid int, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	pgid, err := syscall.Getpgid(pid)
	signal := func(sig syscall.Signal) {
		if err == nil {
			_ = syscall.Kill(-pgid, sig)
			return
		}
		_ = syscall.Kill(pid, sig)
	}
	signal(syscall.SIGTERM)

	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}

	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	deadline := time.Now().Add(timeout)
	for state.ProcessAlive(pid) && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if !state.ProcessAlive(pid) {
		return nil
	}

	signal(syscall.SIGKILL)
	killDeadline := time.Now().Add(2 * time.Second)
	for state.ProcessAlive(pid) && time.Now().Before(killDeadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if state.ProcessAlive(pid) {
		return errors.Errorf("pid %d survived SIGKILL", pid)
	}
	return nil
}
