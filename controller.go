package main

import (
	"context"
	"log/slog"
	"time"

	"golux/indicator"
	"golux/reader"
)

// commandChannel is the outbound session the controller dispatches intents
// on. Satisfied by *channel.Client.
type commandChannel interface {
	Send(slot int, pattern string, enable bool) error
	Connected() bool
	Reconnect() bool
	Close()
}

// boundReader pairs one slot's state machine with its transport.
type boundReader struct {
	slot   *Slot
	poller reader.TagPoller
}

// Controller drives every reader slot once per cycle, dispatches the intents
// their transitions produce, and owns the channel reconnect retry.
type Controller struct {
	readers     []boundReader
	channel     commandChannel
	bank        indicator.Bank
	pollTimeout time.Duration
	interval    time.Duration
}

// NewController assembles the poll cycle over an already-bound reader set.
func NewController(readers []boundReader, ch commandChannel, bank indicator.Bank, pollTimeout, interval time.Duration) *Controller {
	return &Controller{
		readers:     readers,
		channel:     ch,
		bank:        bank,
		pollTimeout: pollTimeout,
		interval:    interval,
	}
}

// Run polls until ctx is cancelled. The cycle in flight when the stop
// arrives always completes, so no send is ever torn by shutdown.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one pass over all slots in slot order, then makes the single
// reconnect attempt if the channel is down.
func (c *Controller) cycle(ctx context.Context) {
	for _, br := range c.readers {
		tag, err := br.poller.Poll(ctx, c.pollTimeout)
		if err != nil {
			// A failed poll skips the slot for this cycle; it is not
			// treated as tag removal.
			if ctx.Err() == nil {
				slog.Warn("reader poll failed", "slot", br.slot.index,
					"fault", "transport", "error", err)
			}
			continue
		}

		intent, ok := br.slot.Poll(tag)
		if !ok {
			continue
		}
		if err := c.channel.Send(intent.Slot, intent.Pattern, intent.Enable); err != nil {
			// The transition is committed; the command is dropped, not retried.
			slog.Warn("command dropped", "slot", intent.Slot,
				"pattern", intent.Pattern, "enable", intent.Enable,
				"fault", "channel", "error", err)
		}
	}

	if !c.channel.Connected() && c.channel.Reconnect() {
		slog.Info("lighting server reconnected")
	}
}

// Shutdown force-deactivates every slot (best-effort disable sends), closes
// the readers, releases the indicator outputs, and closes the channel.
func (c *Controller) Shutdown() {
	for _, br := range c.readers {
		if intent, ok := br.slot.ForceIdle(); ok {
			if err := c.channel.Send(intent.Slot, intent.Pattern, intent.Enable); err != nil {
				slog.Warn("shutdown disable dropped", "slot", intent.Slot,
					"pattern", intent.Pattern, "error", err)
			}
		}
		if err := br.poller.Close(); err != nil {
			slog.Warn("close reader", "slot", br.slot.index, "error", err)
		}
	}
	if err := c.bank.Release(); err != nil {
		slog.Warn("release indicators", "error", err)
	}
	c.channel.Close()
}
