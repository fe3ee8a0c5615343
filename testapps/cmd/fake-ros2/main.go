// fake-ros2 stands in for the ros2 CLI on machines without ROS 2 installed.
// It accepts "launch <file> [name:=value...]" and "run <pkg> <exe> [args...]",
// logs ROS-style console lines to stderr and runs until signalled.
//
// Point a workspace at it with `ros2: /path/to/fake-ros2` in .bringup.yaml.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

// CrashEnv makes matching invocations exit early: "<substring>[:code]".
const CrashEnv = "FAKE_ROS2_CRASH"

func consoleLine(level, logger, msg string, t time.Time) string {
	return fmt.Sprintf("[%s] [%d.%09d] [%s]: %s", level, t.Unix(), t.Nanosecond(), logger, msg)
}

// loggerName picks the node-ish name ROS would print for an invocation.
func loggerName(args []string) string {
	switch {
	case len(args) >= 2 && args[0] == "launch":
		base := filepath.Base(args[1])
		return strings.TrimSuffix(strings.TrimSuffix(base, ".py"), ".launch")
	case len(args) >= 3 && args[0] == "run":
		return args[2]
	}
	return "ros2"
}

// crashCode reports whether rule matches args and the exit code to use.
func crashCode(rule string, args []string) (int, bool) {
	if rule == "" {
		return 0, false
	}
	match, code := rule, 1
	if m, c, ok := strings.Cut(rule, ":"); ok {
		match = m
		if _, err := fmt.Sscanf(c, "%d", &code); err != nil {
			code = 1
		}
	}
	if strings.Contains(strings.Join(args, " "), match) {
		return code, true
	}
	return 0, false
}

func run(args []string, stderr io.Writer, interval, crashAfter time.Duration, stop <-chan os.Signal) int {
	logger := loggerName(args)
	emit := func(level, msg string) {
		_, _ = fmt.Fprintln(stderr, consoleLine(level, logger, msg, time.Now()))
	}
	emit("INFO", "starting: ros2 "+strings.Join(args, " "))
	for _, a := range args {
		if k, v, ok := strings.Cut(a, ":="); ok {
			emit("INFO", fmt.Sprintf("argument %s = %s", k, v))
		}
	}

	code, crash := crashCode(os.Getenv(CrashEnv), args)
	var crashC <-chan time.Time
	if crash {
		crashC = time.After(crashAfter)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	n := 0
	for {
		select {
		case s := <-stop:
			emit("INFO", "shutting down on "+s.String())
			return 0
		case <-crashC:
			emit("ERROR", fmt.Sprintf("simulated failure, exiting with %d", code))
			return code
		case <-t.C:
			n++
			emit("INFO", fmt.Sprintf("heartbeat %d", n))
		}
	}
}

func main() {
	interval := pflag.Duration("interval", 1*time.Second, "Delay between heartbeat lines")
	crashAfter := pflag.Duration("crash-after", 500*time.Millisecond, "Delay before a matching "+CrashEnv+" exit")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: fake-ros2 launch <file> [k:=v...] | run <pkg> <exe> [args...]")
		os.Exit(2)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(args, os.Stderr, *interval, *crashAfter, stop))
}
