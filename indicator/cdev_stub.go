//go:build !linux

package indicator

import "errors"

// ErrNotSupported is returned when the cdev driver is requested on a
// platform without the GPIO character device.
var ErrNotSupported = errors.New("cdev indicators not supported on this platform")

// Cdev is a stub for non-linux platforms.
type Cdev struct{}

// NewCdev returns an error on non-linux platforms.
func NewCdev(chip string, ids []int) (*Cdev, error) {
	return nil, ErrNotSupported
}

func (c *Cdev) Set(id int, on bool) error { return nil }
func (c *Cdev) Release() error            { return nil }
