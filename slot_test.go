package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golux/reader"
)

// recordingBank captures Set calls so tests can check lamp semantics.
type recordingBank struct {
	states   map[int]bool
	sets     []bool
	released bool
}

func newRecordingBank() *recordingBank {
	return &recordingBank{states: make(map[int]bool)}
}

func (b *recordingBank) Set(id int, on bool) error {
	b.states[id] = on
	b.sets = append(b.sets, on)
	return nil
}

func (b *recordingBank) Release() error {
	b.released = true
	return nil
}

func testClassifier() *Classifier {
	return NewClassifier(defaultHeader, []TagMapping{
		{UID: "A1B2", Pattern: "fire", OneShot: false},
		{UID: "C3D4", Pattern: "burst", OneShot: true, Color: "red"},
	})
}

func fireTag() *reader.Tag  { return &reader.Tag{UID: []byte{0xA1, 0xB2}} }
func burstTag() *reader.Tag { return &reader.Tag{UID: []byte{0xC3, 0xD4}} }

func TestSlotActivateThenDeactivate(t *testing.T) {
	bank := newRecordingBank()
	s := NewSlot(0, 23, testClassifier(), bank)

	assert.True(t, bank.states[23], "ready lamp should start on")
	assert.False(t, s.Activated())

	intent, ok := s.Poll(fireTag())
	require.True(t, ok)
	assert.Equal(t, Intent{Slot: 0, Pattern: "fire", Enable: true}, intent)
	assert.True(t, s.Activated())
	assert.False(t, bank.states[23], "lamp goes off while engaged")

	intent, ok = s.Poll(nil)
	require.True(t, ok)
	assert.Equal(t, Intent{Slot: 0, Pattern: "fire", Enable: false}, intent)
	assert.False(t, s.Activated())
	assert.True(t, bank.states[23], "lamp restored to ready")
}

func TestSlotOneShotNeverDeactivates(t *testing.T) {
	s := NewSlot(1, 24, testClassifier(), newRecordingBank())

	intent, ok := s.Poll(burstTag())
	require.True(t, ok)
	assert.Equal(t, Intent{Slot: 1, Pattern: "burst", Enable: true}, intent)

	// Removal of a one-shot tag transitions to idle without an intent.
	_, ok = s.Poll(nil)
	assert.False(t, ok)
	assert.False(t, s.Activated())

	// Same holds on a force-idle shutdown.
	_, ok = s.Poll(burstTag())
	require.True(t, ok)
	_, ok = s.ForceIdle()
	assert.False(t, ok)
}

func TestSlotIgnoresTagsWhileActive(t *testing.T) {
	bank := newRecordingBank()
	s := NewSlot(0, 23, testClassifier(), bank)

	_, ok := s.Poll(fireTag())
	require.True(t, ok)

	// Repeated presentations, same or different tag, never re-trigger.
	for i := 0; i < 3; i++ {
		_, ok = s.Poll(fireTag())
		assert.False(t, ok)
	}
	_, ok = s.Poll(burstTag())
	assert.False(t, ok)
	assert.True(t, s.Activated())

	intent, ok := s.Poll(nil)
	require.True(t, ok)
	assert.False(t, intent.Enable)
}

func TestSlotUnknownTagStaysIdle(t *testing.T) {
	bank := newRecordingBank()
	s := NewSlot(2, 25, testClassifier(), bank)
	before := bank.states[25]

	intent, ok := s.Poll(&reader.Tag{UID: []byte{0xFF, 0xFF}})
	assert.False(t, ok)
	assert.Zero(t, intent)
	assert.False(t, s.Activated())
	assert.Equal(t, !before, bank.states[25], "rejected cue toggles the lamp")
}

func TestSlotNoTagWhileIdleIsQuiet(t *testing.T) {
	bank := newRecordingBank()
	s := NewSlot(0, 23, testClassifier(), bank)
	setsBefore := len(bank.sets)

	for i := 0; i < 5; i++ {
		_, ok := s.Poll(nil)
		assert.False(t, ok)
	}
	assert.Equal(t, setsBefore, len(bank.sets), "no indicator churn while idle")
}

func TestSlotForceIdleEmitsDisable(t *testing.T) {
	bank := newRecordingBank()
	s := NewSlot(0, 23, testClassifier(), bank)

	_, ok := s.Poll(fireTag())
	require.True(t, ok)

	intent, ok := s.ForceIdle()
	require.True(t, ok)
	assert.Equal(t, Intent{Slot: 0, Pattern: "fire", Enable: false}, intent)
	assert.False(t, s.Activated())
	assert.False(t, bank.states[23], "lamp dark after release")

	// Idle slots release without an intent.
	_, ok = s.ForceIdle()
	assert.False(t, ok)
}

// Activated must track exactly the enable/disable history for any poll
// sequence.
func TestSlotActivatedInvariant(t *testing.T) {
	s := NewSlot(0, 23, testClassifier(), newRecordingBank())

	sequence := []*reader.Tag{
		nil, fireTag(), fireTag(), nil, nil,
		{UID: []byte{0xFF}}, burstTag(), nil, fireTag(), nil,
	}

	engaged := false
	for i, tag := range sequence {
		intent, ok := s.Poll(tag)
		if ok && intent.Enable {
			engaged = true
		} else if ok && !intent.Enable {
			engaged = false
		} else if !ok && engaged && tag == nil {
			// one-shot removal: idle without a disable
			engaged = false
		}
		assert.Equal(t, engaged, s.Activated(), "step %d", i)
	}
}
