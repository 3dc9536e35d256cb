//go:build linux

package indicator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Cdev implements Bank through the GPIO character device interface.
type Cdev struct {
	lines map[int]*gpiocdev.Line
}

// NewCdev requests each indicator line as an output on the given chip.
func NewCdev(chip string, ids []int) (*Cdev, error) {
	if chip == "" {
		chip = "gpiochip0"
	}

	c := &Cdev{lines: make(map[int]*gpiocdev.Line, len(ids))}
	for _, id := range ids {
		line, err := gpiocdev.RequestLine(chip, id, gpiocdev.AsOutput(0))
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("request %s line %d: %w", chip, id, err)
		}
		c.lines[id] = line
	}
	return c, nil
}

// Set implements Bank.Set.
func (c *Cdev) Set(id int, on bool) error {
	line, ok := c.lines[id]
	if !ok {
		return fmt.Errorf("indicator %d not claimed", id)
	}
	v := 0
	if on {
		v = 1
	}
	return line.SetValue(v)
}

// Release implements Bank.Release.
func (c *Cdev) Release() error {
	var firstErr error
	for _, line := range c.lines {
		line.SetValue(0)
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.lines = nil
	return firstErr
}
