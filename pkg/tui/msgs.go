package tui

import "github.com/go-go-golems/bringup/pkg/events"

type SnapshotMsg struct {
	Snapshot events.StateSnapshot
}

type ExitMsg struct {
	Exit events.ServiceExitObserved
}
