package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/bringup/pkg/state"
	"github.com/pkg/errors"
)

const Topic = "bringup.events"

const (
	TypeServiceStarted      = "service.started"
	TypeServiceFailed       = "service.failed"
	TypeServiceExitObserved = "service.exit.observed"
	TypeStateSnapshot       = "state.snapshot"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(typ string, payload any) (Envelope, error) {
	if typ == "" {
		return Envelope{}, errors.New("empty envelope type")
	}
	if payload == nil {
		return Envelope{Type: typ}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "marshal envelope payload")
	}
	return Envelope{Type: typ, Payload: b}, nil
}

func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal envelope")
	}
	return env, nil
}

// Publish wraps payload in an envelope and sends it on Topic. A nil
// publisher is a no-op.
func Publish(pub message.Publisher, typ string, payload any) error {
	if pub == nil {
		return nil
	}
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	if err := pub.Publish(Topic, message.NewMessage(watermill.NewUUID(), b)); err != nil {
		return errors.Wrapf(err, "publish %s", typ)
	}
	return nil
}

type ServiceStarted struct {
	Name    string    `json:"name"`
	PID     int       `json:"pid"`
	Command []string  `json:"command"`
	At      time.Time `json:"at"`
}

type ServiceFailed struct {
	Name  string    `json:"name"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

type ServiceExitObserved struct {
	Name   string          `json:"name"`
	PID    int             `json:"pid"`
	When   time.Time       `json:"when"`
	Reason string          `json:"reason,omitempty"`
	Exit   *state.ExitInfo `json:"exit,omitempty"`
}

type StateSnapshot struct {
	Root   string          `json:"root"`
	At     time.Time       `json:"at"`
	Exists bool            `json:"exists"`
	State  *state.State    `json:"state,omitempty"`
	Alive  map[string]bool `json:"alive,omitempty"`
	Error  string          `json:"error,omitempty"`
}
