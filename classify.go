package main

import (
	"encoding/hex"
	"strings"

	"golux/reader"
)

// defaultHeader is the first field a recognized tag payload record must
// carry. Tags are written as "eldermother;pattern:<name>;oneshot:<flag>".
const defaultHeader = "eldermother"

// Trigger is a named lighting pattern reference. A one-shot trigger is
// enabled on presentation and never explicitly disabled.
type Trigger struct {
	Pattern string
	OneShot bool
}

// RegistryEntry is the configured trigger definition for a known bare UID.
// Color carries through to the activation log only.
type RegistryEntry struct {
	Pattern string
	OneShot bool
	Color   string
}

// Classifier decides whether a detected tag is a recognized trigger.
// Classification is pure and deterministic for a given registry snapshot.
type Classifier struct {
	header   string
	registry map[string]RegistryEntry
}

// NewClassifier builds a classifier over the configured tag registry.
// UID keys are case-normalized once, at load.
func NewClassifier(header string, tags []TagMapping) *Classifier {
	reg := make(map[string]RegistryEntry, len(tags))
	for _, t := range tags {
		reg[strings.ToLower(t.UID)] = RegistryEntry{
			Pattern: t.Pattern,
			OneShot: t.OneShot,
			Color:   t.Color,
		}
	}
	return &Classifier{header: header, registry: reg}
}

// Classify returns the trigger a detected tag maps to, or false when the tag
// is not recognized. Tags carrying a payload are classified from the payload
// alone; bare tags fall back to the UID registry.
func (c *Classifier) Classify(tag reader.Tag) (Trigger, bool) {
	if tag.Payload != "" {
		return c.classifyPayload(tag.Payload)
	}

	entry, ok := c.registry[hex.EncodeToString(tag.UID)]
	if !ok {
		return Trigger{}, false
	}
	return Trigger{Pattern: entry.Pattern, OneShot: entry.OneShot}, true
}

// Lookup exposes the full registry entry for a bare UID.
func (c *Classifier) Lookup(uid []byte) (RegistryEntry, bool) {
	entry, ok := c.registry[hex.EncodeToString(uid)]
	return entry, ok
}

// classifyPayload decodes a "<header>;pattern:<name>;oneshot:<flag>" record.
// Extra fields such as "color:<c>" are allowed and ignored here.
func (c *Classifier) classifyPayload(text string) (Trigger, bool) {
	fields := strings.Split(text, ";")
	if len(fields) < 3 || fields[0] != c.header {
		return Trigger{}, false
	}

	var trig Trigger
	var havePattern, haveOneShot bool
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		switch k {
		case "pattern":
			trig.Pattern = v
			havePattern = v != ""
		case "oneshot":
			trig.OneShot = isYes(v)
			haveOneShot = true
		}
	}
	if !havePattern || !haveOneShot {
		return Trigger{}, false
	}
	return trig, true
}

func isYes(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "true":
		return true
	}
	return false
}
