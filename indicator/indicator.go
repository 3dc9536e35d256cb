package indicator

import "fmt"

// Bank drives the per-reader indicator lamps. For the GPIO drivers an
// indicator id is the BCM line offset of the output.
type Bank interface {
	// Set drives the output for the given indicator id.
	Set(id int, on bool) error

	// Release turns all claimed outputs off and frees the hardware.
	Release() error
}

// Config selects the indicator driver.
type Config struct {
	Driver string `yaml:"driver"` // "gpio", "cdev", "none"
	Chip   string `yaml:"chip"`   // gpiochip name for the cdev driver
}

// New creates a Bank claiming the given indicator ids.
func New(cfg Config, ids []int) (Bank, error) {
	switch cfg.Driver {
	case "gpio":
		return NewGPIO(ids)
	case "cdev":
		return NewCdev(cfg.Chip, ids)
	case "", "none":
		return &Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown indicator driver %q", cfg.Driver)
	}
}
