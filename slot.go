package main

import (
	"encoding/hex"
	"log/slog"

	"golux/indicator"
	"golux/reader"
)

// Intent is a pattern enable/disable command produced by a slot transition.
type Intent struct {
	Slot    int
	Pattern string
	Enable  bool
}

// Slot owns the activation state machine for one bound reader. The slot is
// active exactly while active is non-nil; the trigger it holds is the one
// whose enable command was emitted when the tag was presented.
//
// Indicator convention: lamp on = ready for a tag, lamp off = trigger
// engaged, toggling = rejected/busy cue.
type Slot struct {
	index       int
	indicatorID int

	classifier *Classifier
	bank       indicator.Bank

	active *Trigger
	lampOn bool
}

// NewSlot creates an idle slot and lights its ready lamp.
func NewSlot(index, indicatorID int, classifier *Classifier, bank indicator.Bank) *Slot {
	s := &Slot{
		index:       index,
		indicatorID: indicatorID,
		classifier:  classifier,
		bank:        bank,
	}
	s.setLamp(true)
	return s
}

// Poll consumes one poll result (nil = no tag in the window) and returns the
// intent, if any, that the transition produced. At most one intent per poll.
func (s *Slot) Poll(tag *reader.Tag) (Intent, bool) {
	if s.active != nil {
		if tag != nil {
			// Already engaged, new presentations are ignored.
			slog.Debug("tag presented while engaged", "slot", s.index, "uid", hex.EncodeToString(tag.UID))
			s.setLamp(!s.lampOn)
			return Intent{}, false
		}

		// Tag removed. One-shot triggers are fire-and-forget and must not
		// be explicitly turned off.
		prev := *s.active
		s.active = nil
		s.setLamp(true)
		slog.Info("tag removed", "slot", s.index, "pattern", prev.Pattern, "one_shot", prev.OneShot)
		if prev.OneShot {
			return Intent{}, false
		}
		return Intent{Slot: s.index, Pattern: prev.Pattern, Enable: false}, true
	}

	if tag == nil {
		return Intent{}, false
	}

	trig, ok := s.classifier.Classify(*tag)
	if !ok {
		slog.Warn("tag not recognized", "slot", s.index,
			"uid", hex.EncodeToString(tag.UID), "fault", "classification")
		s.setLamp(!s.lampOn)
		return Intent{}, false
	}

	attrs := []any{"slot", s.index, "pattern", trig.Pattern, "one_shot", trig.OneShot}
	if entry, found := s.classifier.Lookup(tag.UID); found && entry.Color != "" {
		attrs = append(attrs, "color", entry.Color)
	}
	slog.Info("trigger engaged", attrs...)

	s.active = &trig
	s.setLamp(false)
	return Intent{Slot: s.index, Pattern: trig.Pattern, Enable: true}, true
}

// ForceIdle drops the slot back to idle at shutdown. It returns the disable
// intent for a non-one-shot active trigger so the caller can make one
// best-effort send before the channel closes. The lamp goes dark.
func (s *Slot) ForceIdle() (Intent, bool) {
	prev := s.active
	s.active = nil
	s.setLamp(false)
	if prev == nil || prev.OneShot {
		return Intent{}, false
	}
	return Intent{Slot: s.index, Pattern: prev.Pattern, Enable: false}, true
}

// Activated reports whether a trigger is currently engaged on this slot.
func (s *Slot) Activated() bool { return s.active != nil }

func (s *Slot) setLamp(on bool) {
	s.lampOn = on
	if err := s.bank.Set(s.indicatorID, on); err != nil {
		slog.Warn("indicator update failed", "slot", s.index,
			"indicator", s.indicatorID, "error", err)
	}
}
