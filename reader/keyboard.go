package reader

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kenshaw/evdev"
)

// Keyboard implements TagPoller for USB keyboard-wedge readers that type the
// tag UID as hex digits followed by Enter. Digits arrive faster than the
// poll window, so partial input is carried across polls.
type Keyboard struct {
	device *evdev.Evdev
	events <-chan *evdev.EventEnvelope
	strbuf string
}

// NewKeyboard creates a new keyboard reader on the specified input device.
func NewKeyboard(device string) (*Keyboard, error) {
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}

	slog.Info("opened keyboard reader",
		"device", dev.Name(),
		"vendor", fmt.Sprintf("%#04x", dev.ID().Vendor),
		"product", fmt.Sprintf("%#04x", dev.ID().Product))

	return &Keyboard{
		device: dev,
		events: dev.Poll(context.Background()),
	}, nil
}

// Poll implements TagPoller.Poll for keyboard readers.
func (k *Keyboard) Poll(ctx context.Context, timeout time.Duration) (*Tag, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case event := <-k.events:
			if event == nil {
				return nil, fmt.Errorf("keyboard device closed")
			}

			switch event.Type.(type) {
			case evdev.KeyType:
				if event.Value != 1 {
					continue
				}
				if event.Type != evdev.KeyEnter {
					k.strbuf += evdev.KeyType(event.Code).String()
					continue
				}

				line := k.strbuf
				k.strbuf = ""
				if line == "" {
					continue
				}
				uid, err := uidFromHex(line)
				if err != nil {
					slog.Warn("discarding bad badge line", "input", line, "error", err)
					continue
				}
				return &Tag{UID: uid}, nil
			}
		}
	}
}

// Close implements TagPoller.Close.
func (k *Keyboard) Close() error {
	if k.device == nil {
		return nil
	}
	return k.device.Close()
}

// uidFromHex decodes a typed hex UID, tolerating an odd digit count.
func uidFromHex(s string) ([]byte, error) {
	s = strings.ToLower(s)
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
