package indicator

// Noop implements Bank but does nothing. Used when no indicator hardware is
// configured.
type Noop struct{}

// Set implements Bank.Set.
func (n *Noop) Set(id int, on bool) error { return nil }

// Release implements Bank.Release.
func (n *Noop) Release() error { return nil }
