package reader

import (
	"context"
	"fmt"
	"time"
)

// Tag is one detected tag: its UID plus, when the tag carries one, the text
// of its first NDEF record.
type Tag struct {
	UID     []byte
	Payload string
}

// TagPoller is the interface for all tag reader transports. Poll blocks for
// at most timeout and returns nil when no tag was presented in that window.
type TagPoller interface {
	Poll(ctx context.Context, timeout time.Duration) (*Tag, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type   string `yaml:"type"`   // "pn532", "keyboard"
	Device string `yaml:"device"` // e.g., "/dev/ttyUSB0", "/dev/input/event0"
	Baud   int    `yaml:"baud"`   // baud rate for serial devices
}

// New creates a TagPoller based on the provided configuration.
func New(cfg Config) (TagPoller, error) {
	switch cfg.Type {
	case "keyboard":
		return NewKeyboard(cfg.Device)
	case "pn532", "":
		// Default to PN532 on serial, the usual FTDI cable setup.
		return NewPN532(cfg.Device, cfg.Baud)
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}
