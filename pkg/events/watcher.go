package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
)

// StateWatcher polls the persisted state and publishes snapshots plus one
// exit event per alive-to-dead transition.
type StateWatcher struct {
	Root     string
	Interval time.Duration
	Pub      message.Publisher
	// SkipSnapshots publishes only exit transitions.
	SkipSnapshots bool

	lastAlive map[string]bool
}

func (w *StateWatcher) Run(ctx context.Context) error {
	if w.Root == "" {
		return errors.New("missing Root")
	}
	if w.Pub == nil {
		return errors.New("missing Publisher")
	}
	if w.Interval <= 0 {
		w.Interval = 1 * time.Second
	}

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		if err := w.Poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (w *StateWatcher) Poll() error {
	now := time.Now()
	if !state.Exists(w.Root) {
		w.lastAlive = nil
		return w.snapshot(StateSnapshot{Root: w.Root, At: now})
	}

	st, err := state.Load(w.Root)
	if err != nil {
		w.lastAlive = nil
		return w.snapshot(StateSnapshot{Root: w.Root, At: now, Exists: true, Error: err.Error()})
	}

	alive := make(map[string]bool, len(st.Services))
	for _, svc := range st.Services {
		alive[svc.Name] = state.ProcessAlive(svc.PID)
	}

	if w.lastAlive != nil {
		for _, svc := range st.Services {
			if !w.lastAlive[svc.Name] || alive[svc.Name] {
				continue
			}
			ev := ServiceExitObserved{Name: svc.Name, PID: svc.PID, When: now, Reason: "process not alive"}
			if info, err := state.ReadExitInfo(svc.ExitInfo); err == nil && info != nil {
				ev.Exit = info
				ev.Reason = info.Summary()
			}
			if err := Publish(w.Pub, TypeServiceExitObserved, ev); err != nil {
				return err
			}
		}
	}
	w.lastAlive = alive

	return w.snapshot(StateSnapshot{Root: w.Root, At: now, Exists: true, State: st, Alive: alive})
}

func (w *StateWatcher) snapshot(s StateSnapshot) error {
	if w.SkipSnapshots {
		return nil
	}
	return Publish(w.Pub, TypeStateSnapshot, s)
}
