package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO implements Bank using memory-mapped GPIO via govattu.
type GPIO struct {
	hw   govattu.Vattu
	pins []uint8
}

// NewGPIO claims the given BCM pins as outputs, starting off.
func NewGPIO(ids []int) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{hw: hw}
	for _, id := range ids {
		pin := uint8(id)
		hw.PinMode(pin, govattu.ALToutput)
		hw.PinClear(pin)
		g.pins = append(g.pins, pin)
	}
	return g, nil
}

// Set implements Bank.Set.
func (g *GPIO) Set(id int, on bool) error {
	if on {
		g.hw.PinSet(uint8(id))
	} else {
		g.hw.PinClear(uint8(id))
	}
	return nil
}

// Release implements Bank.Release.
func (g *GPIO) Release() error {
	for _, pin := range g.pins {
		g.hw.PinClear(pin)
	}
	return g.hw.Close()
}
