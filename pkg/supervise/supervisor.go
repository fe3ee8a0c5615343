package supervise

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Root            string
	ShutdownTimeout time.Duration
	// DeviceTimeout bounds the wait for a service's device nodes to appear.
	DeviceTimeout time.Duration
	// WrapperExe, when set, runs each service under "<exe> __wrap-service"
	// so exit codes and stderr tails are recorded.
	WrapperExe string
	Events     message.Publisher
}

type Supervisor struct {
	opts Options
}

func New(opts Options) *Supervisor {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 3 * time.Second
	}
	if opts.DeviceTimeout <= 0 {
		opts.DeviceTimeout = 10 * time.Second
	}
	return &Supervisor{opts: opts}
}

// Start launches services in plan order. If any service cannot be started,
// everything started so far is stopped and the error returned.
func (s *Supervisor) Start(ctx context.Context, plan launch.ServicePlan) (*state.State, error) {
	if s.opts.Root == "" {
		return nil, errors.New("missing Root")
	}
	if err := os.MkdirAll(state.LogsDir(s.opts.Root), 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir logs dir")
	}

	st := &state.State{
		Root:      s.opts.Root,
		CreatedAt: time.Now(),
		Services:  []state.ServiceRecord{},
	}

	for _, svc := range plan.Services {
		rec, err := s.startService(ctx, svc)
		if err != nil {
			s.publish(events.TypeServiceFailed, events.ServiceFailed{Name: svc.Name, Error: err.Error(), At: time.Now()})
			_ = s.Stop(context.Background(), st)
			return nil, err
		}
		st.Services = append(st.Services, rec)
		s.publish(events.TypeServiceStarted, events.ServiceStarted{Name: rec.Name, PID: rec.PID, Command: rec.Command, At: rec.StartedAt})

		if svc.SettleMs > 0 {
			if err := settle(ctx, rec, time.Duration(svc.SettleMs)*time.Millisecond); err != nil {
				s.publish(events.TypeServiceFailed, events.ServiceFailed{Name: svc.Name, Error: err.Error(), At: time.Now()})
				_ = s.Stop(context.Background(), st)
				return nil, err
			}
		}
	}
	return st, nil
}

func (s *Supervisor) Stop(ctx context.Context, st *state.State) error {
	if st == nil {
		return nil
	}
	var lastErr error
	// reverse start order: hardware first, state publisher last
	for i := len(st.Services) - 1; i >= 0; i-- {
		svc := st.Services[i]
		if svc.PID <= 0 {
			continue
		}
		if err := terminatePIDGroup(ctx, svc.PID, s.opts.ShutdownTimeout); err != nil {
			log.Warn().Err(err).Str("service", svc.Name).Int("pid", svc.PID).Msg("stop failed")
			lastErr = err
		}
	}
	return lastErr
}

func (s *Supervisor) publish(typ string, payload any) {
	if err := events.Publish(s.opts.Events, typ, payload); err != nil {
		log.Debug().Err(err).Str("type", typ).Msg("publish event")
	}
}

func (s *Supervisor) startService(ctx context.Context, svc launch.ServiceSpec) (state.ServiceRecord, error) {
	if svc.Name == "" {
		return state.ServiceRecord{}, errors.New("service name is required")
	}
	if len(svc.Command) == 0 {
		return state.ServiceRecord{}, errors.Errorf("service %q missing command", svc.Name)
	}

	for _, dev := range svc.Devices {
		waitCtx, cancel := context.WithTimeout(ctx, s.opts.DeviceTimeout)
		err := waitDevice(waitCtx, dev)
		cancel()
		if err != nil {
			return state.ServiceRecord{}, errors.Wrapf(err, "service %q", svc.Name)
		}
	}

	cwd := s.opts.Root
	if svc.Cwd != "" {
		if filepath.IsAbs(svc.Cwd) {
			cwd = svc.Cwd
		} else {
			cwd = filepath.Join(s.opts.Root, svc.Cwd)
		}
	}

	ts := time.Now().Format("20060102-150405")
	base := filepath.Join(state.LogsDir(s.opts.Root), svc.Name+"-"+ts)
	rec := state.ServiceRecord{
		Name:      svc.Name,
		Command:   svc.Command,
		Cwd:       cwd,
		Env:       state.SanitizeEnv(svc.Env),
		Devices:   svc.Devices,
		StdoutLog: base + ".stdout.log",
		StderrLog: base + ".stderr.log",
	}

	var (
		pid int
		err error
	)
	if s.opts.WrapperExe == "" {
		pid, err = s.startDirect(svc, rec)
	} else {
		rec.ExitInfo = base + ".exit.json"
		pid, err = s.startWrapped(svc, rec, base+".ready")
	}
	if err != nil {
		return state.ServiceRecord{}, err
	}
	rec.PID = pid
	rec.StartedAt = time.Now()
	log.Info().Str("service", svc.Name).Int("pid", pid).Strs("command", svc.Command).Msg("service started")
	return rec, nil
}

func (s *Supervisor) startDirect(svc launch.ServiceSpec, rec state.ServiceRecord) (int, error) {
	stdoutFile, err := os.OpenFile(rec.StdoutLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, errors.Wrap(err, "open stdout log")
	}
	defer func() { _ = stdoutFile.Close() }()

	stderrFile, err := os.OpenFile(rec.StderrLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, errors.Wrap(err, "open stderr log")
	}
	defer func() { _ = stderrFile.Close() }()

	// #nosec G204 -- command comes from the launch plan.
	cmd := exec.Command(svc.Command[0], svc.Command[1:]...)
	cmd.Dir = rec.Cwd
	cmd.Env = MergeEnv(os.Environ(), svc.Env)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(err, "start service %q", svc.Name)
	}
	go func() { _ = cmd.Wait() }()
	return cmd.Process.Pid, nil
}

func (s *Supervisor) startWrapped(svc launch.ServiceSpec, rec state.ServiceRecord, readyPath string) (int, error) {
	args := []string{
		"__wrap-service",
		"--service", svc.Name,
		"--cwd", rec.Cwd,
		"--stdout-log", rec.StdoutLog,
		"--stderr-log", rec.StderrLog,
		"--exit-info", rec.ExitInfo,
		"--ready-file", readyPath,
	}
	for k, v := range svc.Env {
		args = append(args, "--env", k+"="+v)
	}
	args = append(args, "--")
	args = append(args, svc.Command...)

	// #nosec G204 -- wrapper is our own executable.
	cmd := exec.Command(s.opts.WrapperExe, args...)
	cmd.Dir = s.opts.Root
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, errors.Wrap(err, "start wrapper")
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(readyPath); err == nil {
			return pid, nil
		}
		if time.Now().After(deadline) || !state.ProcessAlive(pid) {
			_ = terminatePIDGroup(context.Background(), pid, 1*time.Second)
			info, _ := state.ReadExitInfo(rec.ExitInfo)
			if info != nil && info.Error != "" {
				return 0, errors.Errorf("service %q: %s", svc.Name, info.Error)
			}
			return 0, errors.Errorf("service %q: wrapper did not report child start", svc.Name)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// MergeEnv appends extra to base; later entries win for exec.
func MergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
