package events

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// RegisterPrinter writes every envelope on Topic to w as one JSON line.
func RegisterPrinter(bus *Bus, w io.Writer) {
	var mu sync.Mutex
	bus.AddHandler("bringup-printer", Topic, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := Decode(msg)
		if err != nil {
			return err
		}
		b, err := json.Marshal(env)
		if err != nil {
			return errors.Wrap(err, "marshal envelope")
		}
		mu.Lock()
		defer mu.Unlock()
		_, err = w.Write(append(b, '\n'))
		return err
	})
}
