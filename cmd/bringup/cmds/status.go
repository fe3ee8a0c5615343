package cmds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type serviceStatus struct {
	Name    string          `json:"name"`
	PID     int             `json:"pid"`
	Alive   bool            `json:"alive"`
	Command []string        `json:"command"`
	Devices []string        `json:"devices,omitempty"`
	Stdout  string          `json:"stdout_log"`
	Stderr  string          `json:"stderr_log"`
	Exit    *state.ExitInfo `json:"exit,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var tailLines int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of supervised services",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			st, err := state.Load(opts.Root)
			if err != nil {
				return err
			}

			services := make([]serviceStatus, 0, len(st.Services))
			for _, s := range st.Services {
				alive := state.ProcessAlive(s.PID)
				var exitInfo *state.ExitInfo
				if !alive {
					exitInfo = deadServiceExit(st, s, tailLines)
				}
				services = append(services, serviceStatus{
					Name:    s.Name,
					PID:     s.PID,
					Alive:   alive,
					Command: s.Command,
					Devices: s.Devices,
					Stdout:  s.StdoutLog,
					Stderr:  s.StderrLog,
					Exit:    exitInfo,
				})
			}

			b, err := json.MarshalIndent(map[string]any{
				"model":    st.Model,
				"lidar":    st.Lidar,
				"args":     st.Args,
				"services": services,
			}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal status")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().IntVar(&tailLines, "tail-lines", 25, "How many stderr lines to include for dead services")
	return cmd
}

// deadServiceExit prefers the wrapper's exit record and falls back to the
// stderr log tail for services started without the wrapper.
func deadServiceExit(st *state.State, s state.ServiceRecord, tailLines int) *state.ExitInfo {
	if s.ExitInfo != "" {
		ei, err := state.ReadExitInfo(s.ExitInfo)
		if err == nil && ei != nil {
			if tailLines > 0 && len(ei.StderrTail) > tailLines {
				ei.StderrTail = append([]string{}, ei.StderrTail[len(ei.StderrTail)-tailLines:]...)
			}
			return ei
		}
	}
	if tailLines <= 0 {
		return nil
	}
	lines, err := state.TailLines(s.StderrLog, tailLines, state.DefaultTailBytes)
	if err != nil {
		return nil
	}
	started := s.StartedAt
	if started.IsZero() {
		started = st.CreatedAt
	}
	return &state.ExitInfo{
		Service:    s.Name,
		PID:        s.PID,
		StartedAt:  started,
		ExitedAt:   time.Now(),
		Error:      "exit info unavailable; stderr tail captured at status time",
		StderrTail: lines,
	}
}
