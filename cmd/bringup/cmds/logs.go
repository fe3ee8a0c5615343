package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/bringup/pkg/logfilter"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var useStderr bool
	var tail int
	var since string
	var filterJS string
	var follow bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Print a service's log, optionally filtered by time or a JavaScript predicate",
		Long: "Print a service's log.\n\n" +
			"--filter-js takes an expression evaluated per line with `line` bound to\n" +
			"{level, time, logger, message, raw, parsed}, e.g.\n" +
			"  bringup logs hardware --stderr --filter-js 'line.level == \"ERROR\"'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			st, err := state.Load(opts.Root)
			if err != nil {
				return err
			}
			svc, ok := st.Service(args[0])
			if !ok {
				return errors.Errorf("unknown service %q", args[0])
			}
			path := svc.StdoutLog
			if useStderr {
				path = svc.StderrLog
			}

			var filters logfilter.All
			if since != "" {
				t, err := logfilter.ParseSince(since, time.Now())
				if err != nil {
					return err
				}
				filters = append(filters, &logfilter.Since{T: t})
			}
			if filterJS != "" {
				js, err := logfilter.CompileJS(filterJS, 100*time.Millisecond)
				if err != nil {
					return err
				}
				filters = append(filters, js)
			}

			out := cmd.OutOrStdout()
			var lines []string
			var offset int64
			if follow {
				// a partial last line is left for followFile to finish
				lines, offset, err = state.TailCompleteLines(path, tail, state.DefaultTailBytes)
			} else {
				lines, err = state.TailLines(path, tail, state.DefaultTailBytes)
			}
			if err != nil {
				return err
			}
			for _, raw := range lines {
				if err := emitLine(out, filters, raw); err != nil {
					return err
				}
			}
			if !follow {
				return nil
			}
			return followFile(cmd.Context(), path, offset, pollInterval, func(raw string) error {
				return emitLine(out, filters, raw)
			})
		},
	}

	cmd.Flags().BoolVar(&useStderr, "stderr", false, "Read the stderr log instead of stdout (ROS console output goes to stderr)")
	cmd.Flags().IntVar(&tail, "tail", 200, "Number of trailing lines to print")
	cmd.Flags().StringVar(&since, "since", "", "Only lines at or after this time (duration like 10m, or a date)")
	cmd.Flags().StringVar(&filterJS, "filter-js", "", "JavaScript expression; lines where it is truthy are kept")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().DurationVar(&pollInterval, "poll", 250*time.Millisecond, "Poll interval for --follow")
	return cmd
}

func emitLine(w io.Writer, filters logfilter.All, raw string) error {
	if len(filters) > 0 {
		keep, err := filters.Keep(logfilter.Parse(raw))
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
	}
	_, err := fmt.Fprintln(w, raw)
	return err
}

// followFile emits the lines of path starting at offset, then keeps polling
// for appended lines until ctx is done. A partial trailing line is held back
// until its newline arrives.
func followFile(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open log")
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek log")
	}

	r := bufio.NewReader(f)
	var partial strings.Builder
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		for {
			chunk, err := r.ReadString('\n')
			partial.WriteString(chunk)
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.Wrap(err, "read log")
			}
			line := strings.TrimRight(partial.String(), "\r\n")
			partial.Reset()
			if err := emit(line); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
