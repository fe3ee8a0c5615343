package cmds

import (
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/go-go-golems/bringup/pkg/supervise"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type wrapOptions struct {
	service   string
	cwd       string
	stdoutLog string
	stderrLog string
	exitInfo  string
	readyFile string
	env       []string
	tailLines int
}

func newWrapServiceCmd() *cobra.Command {
	var o wrapOptions

	cmd := &cobra.Command{
		Use:    "__wrap-service -- [cmd args...]",
		Short:  "Internal: run one service and record how it exited",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout/stderr belong to the child's log files
			zerolog.SetGlobalLevel(zerolog.Disabled)
			log.Logger = zerolog.New(io.Discard)
			return runWrapped(o, args)
		},
	}

	cmd.Flags().StringVar(&o.service, "service", "", "Service name")
	cmd.Flags().StringVar(&o.cwd, "cwd", "", "Working directory")
	cmd.Flags().StringVar(&o.stdoutLog, "stdout-log", "", "Stdout log path")
	cmd.Flags().StringVar(&o.stderrLog, "stderr-log", "", "Stderr log path")
	cmd.Flags().StringVar(&o.exitInfo, "exit-info", "", "Exit info JSON path")
	cmd.Flags().StringVar(&o.readyFile, "ready-file", "", "Write child PID to this file once started")
	cmd.Flags().StringArrayVar(&o.env, "env", nil, "Extra env (KEY=VAL), repeatable")
	cmd.Flags().IntVar(&o.tailLines, "tail-lines", 25, "How many stderr lines to record on exit")
	return cmd
}

func (o wrapOptions) validate() error {
	switch {
	case o.service == "":
		return errors.New("missing --service")
	case o.cwd == "":
		return errors.New("missing --cwd")
	case o.stdoutLog == "" || o.stderrLog == "":
		return errors.New("missing --stdout-log or --stderr-log")
	case o.exitInfo == "":
		return errors.New("missing --exit-info")
	}
	return nil
}

func runWrapped(o wrapOptions, argv []string) error {
	if err := o.validate(); err != nil {
		return err
	}
	for _, p := range []string{o.stdoutLog, o.stderrLog, o.exitInfo} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return errors.Wrapf(err, "mkdir %s", filepath.Dir(p))
		}
	}

	stdoutFile, err := os.OpenFile(o.stdoutLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open stdout log")
	}
	defer func() { _ = stdoutFile.Close() }()
	stderrFile, err := os.OpenFile(o.stderrLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open stderr log")
	}
	defer func() { _ = stderrFile.Close() }()

	// The supervisor signals our process group; the child joins it.
	if err := syscall.Setpgid(0, 0); err != nil {
		return errors.Wrap(err, "setpgid")
	}
	pgid := os.Getpid()

	startedAt := time.Now()
	child := exec.Command(argv[0], argv[1:]...) //nolint:gosec
	child.Dir = o.cwd
	child.Env = supervise.MergeEnv(os.Environ(), parseEnvPairs(o.env))
	child.Stdout = stdoutFile
	child.Stderr = stderrFile
	child.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for s := range sigCh {
			_ = syscall.Kill(-pgid, s.(syscall.Signal))
		}
	}()

	if err := child.Start(); err != nil {
		_ = state.WriteExitInfo(o.exitInfo, state.ExitInfo{
			Service:   o.service,
			StartedAt: startedAt,
			ExitedAt:  time.Now(),
			Error:     errors.Wrap(err, "start").Error(),
		})
		return errors.Wrap(err, "start child")
	}
	if o.readyFile != "" {
		_ = os.WriteFile(o.readyFile, []byte(strconv.Itoa(child.Process.Pid)+"\n"), 0o644)
	}

	info := exitInfoFor(o.service, child.Process.Pid, startedAt, child.Wait())
	_ = stderrFile.Sync()
	if lines, err := state.TailLines(o.stderrLog, o.tailLines, state.DefaultTailBytes); err == nil {
		info.StderrTail = lines
	}
	_ = state.WriteExitInfo(o.exitInfo, info)

	if info.Signal != "" {
		return errors.Errorf("service exited by %s", info.Signal)
	}
	if info.ExitCode != nil && *info.ExitCode != 0 {
		return errors.Errorf("service exited with code %d", *info.ExitCode)
	}
	return nil
}

func exitInfoFor(service string, pid int, startedAt time.Time, waitErr error) state.ExitInfo {
	info := state.ExitInfo{
		Service:   service,
		PID:       pid,
		StartedAt: startedAt,
		ExitedAt:  time.Now(),
	}
	if waitErr == nil {
		code := 0
		info.ExitCode = &code
		return info
	}
	info.Error = waitErr.Error()
	var ee *exec.ExitError
	if stderrors.As(waitErr, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				info.Signal = ws.Signal().String()
			}
			if ws.Exited() {
				code := ws.ExitStatus()
				info.ExitCode = &code
			}
		}
	}
	return info
}

func parseEnvPairs(pairs []string) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
