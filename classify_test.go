package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"golux/reader"
)

func TestClassifyPayload(t *testing.T) {
	c := NewClassifier(defaultHeader, nil)

	tests := []struct {
		name    string
		payload string
		want    Trigger
		ok      bool
	}{
		{"basic", "eldermother;pattern:fire;oneshot:no", Trigger{Pattern: "fire"}, true},
		{"oneshot yes", "eldermother;pattern:burst;oneshot:yes", Trigger{Pattern: "burst", OneShot: true}, true},
		{"oneshot y", "eldermother;pattern:burst;oneshot:y", Trigger{Pattern: "burst", OneShot: true}, true},
		{"oneshot true", "eldermother;pattern:burst;oneshot:true", Trigger{Pattern: "burst", OneShot: true}, true},
		{"oneshot mixed case", "eldermother;pattern:burst;oneshot:YES", Trigger{Pattern: "burst", OneShot: true}, true},
		{"extra color field", "eldermother;pattern:fire;oneshot:no;color:red", Trigger{Pattern: "fire"}, true},
		{"wrong header", "stranger;pattern:fire;oneshot:no", Trigger{}, false},
		{"missing header", "pattern:fire;oneshot:no", Trigger{}, false},
		{"missing oneshot", "eldermother;pattern:fire", Trigger{}, false},
		{"missing pattern", "eldermother;oneshot:no;color:red", Trigger{}, false},
		{"empty pattern", "eldermother;pattern:;oneshot:no", Trigger{}, false},
		{"garbage", "not a record at all", Trigger{}, false},
		{"empty", "", Trigger{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(reader.Tag{UID: []byte{0x01}, Payload: tt.payload})
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClassifyUIDLookup(t *testing.T) {
	// Registry keys are case-normalized at load.
	c := NewClassifier(defaultHeader, []TagMapping{
		{UID: "A1B2", Pattern: "fire", OneShot: false},
		{UID: "c3d4e5f607", Pattern: "burst", OneShot: true, Color: "red"},
	})

	trig, ok := c.Classify(reader.Tag{UID: []byte{0xA1, 0xB2}})
	assert.True(t, ok)
	assert.Equal(t, Trigger{Pattern: "fire"}, trig)

	trig, ok = c.Classify(reader.Tag{UID: []byte{0xC3, 0xD4, 0xE5, 0xF6, 0x07}})
	assert.True(t, ok)
	assert.Equal(t, Trigger{Pattern: "burst", OneShot: true}, trig)

	_, ok = c.Classify(reader.Tag{UID: []byte{0xFF, 0xFF}})
	assert.False(t, ok, "unmapped identifier must classify as unknown")
}

func TestClassifyPayloadWinsOverUID(t *testing.T) {
	c := NewClassifier(defaultHeader, []TagMapping{
		{UID: "A1B2", Pattern: "fire"},
	})

	// A known UID with an unrecognized payload is still unknown: the
	// payload is authoritative when present.
	_, ok := c.Classify(reader.Tag{UID: []byte{0xA1, 0xB2}, Payload: "junk"})
	assert.False(t, ok)

	trig, ok := c.Classify(reader.Tag{
		UID:     []byte{0xA1, 0xB2},
		Payload: "eldermother;pattern:ripple;oneshot:no",
	})
	assert.True(t, ok)
	assert.Equal(t, "ripple", trig.Pattern)
}

func TestClassifierLookupColor(t *testing.T) {
	c := NewClassifier(defaultHeader, []TagMapping{
		{UID: "C3D4", Pattern: "burst", OneShot: true, Color: "red"},
	})

	entry, ok := c.Lookup([]byte{0xC3, 0xD4})
	assert.True(t, ok)
	assert.Equal(t, "red", entry.Color)

	_, ok = c.Lookup([]byte{0x00})
	assert.False(t, ok)
}
