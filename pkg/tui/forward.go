package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/bringup/pkg/events"
	"github.com/pkg/errors"
)

// RegisterForwarder turns bus events into tea messages for p.
func RegisterForwarder(bus *events.Bus, p *tea.Program) {
	bus.AddHandler("bringup-tui-forward", events.Topic, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := events.Decode(msg)
		if err != nil {
			return err
		}
		switch env.Type {
		case events.TypeStateSnapshot:
			var snap events.StateSnapshot
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				return errors.Wrap(err, "unmarshal snapshot payload")
			}
			p.Send(SnapshotMsg{Snapshot: snap})
		case events.TypeServiceExitObserved:
			var exit events.ServiceExitObserved
			if err := json.Unmarshal(env.Payload, &exit); err != nil {
				return errors.Wrap(err, "unmarshal exit payload")
			}
			p.Send(ExitMsg{Exit: exit})
		}
		return nil
	})
}
