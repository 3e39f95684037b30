package volume

import (
	"errors"
	"fmt"
)

// ErrUnknownSlot is returned by SetVolume for a slot outside the current
// sample count.
var ErrUnknownSlot = errors.New("unknown slot")

type field struct {
	slot Slot
	raw  string
	set  bool
}

// Model is the live form state: a sample count and one raw volume field per
// slot. It is owned by a single UI and is not safe for concurrent use.
type Model struct {
	fields []field
}

// New returns an empty model. Count is 0 until the first SetSampleCount.
func New() *Model {
	return &Model{}
}

// SetSampleCount parses raw as the requested count (non-numeric -> 1),
// clamps it and rebuilds the slot list. Previous volumes are discarded.
func (m *Model) SetSampleCount(raw string) int {
	return m.SetCount(ParseCount(raw))
}

// SetCount is SetSampleCount for an already numeric request.
func (m *Model) SetCount(n int) int {
	n = ClampCount(n)
	m.fields = make([]field, n)
	for i := range m.fields {
		m.fields[i] = field{slot: SlotAt(i)}
	}
	return n
}

// SetVolume stores the raw text for slot. Text that does not parse reads as
// 0 everywhere downstream; that is not an error.
func (m *Model) SetVolume(slot Slot, raw string) error {
	for i := range m.fields {
		if m.fields[i].slot == slot {
			m.fields[i].raw = raw
			m.fields[i].set = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
}

// Count returns the current sample count.
func (m *Model) Count() int { return len(m.fields) }

// Slots returns the current slots in order.
func (m *Model) Slots() []Slot {
	out := make([]Slot, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.slot
	}
	return out
}

// Raw returns the text last stored for slot and whether it was ever set.
func (m *Model) Raw(slot Slot) (string, bool) {
	for _, f := range m.fields {
		if f.slot == slot {
			return f.raw, f.set
		}
	}
	return "", false
}

// Volume returns the effective volume for slot.
func (m *Model) Volume(slot Slot) float64 {
	raw, set := m.Raw(slot)
	if !set {
		return 0
	}
	return ParseVolume(raw)
}

// TotalWaterRequired returns Σ volume + 45 µL per sample, 0 for an empty model.
func (m *Model) TotalWaterRequired() float64 {
	return m.Snapshot().Total()
}

// Snapshot returns the current ordered Volume Map.
func (m *Model) Snapshot() Map {
	out := make(Map, len(m.fields))
	for i, f := range m.fields {
		var v float64
		if f.set {
			v = ParseVolume(f.raw)
		}
		out[i] = Entry{Slot: f.slot, Volume: v}
	}
	return out
}

// FromMap returns a model whose fields hold the volumes of vm.
func FromMap(vm Map) *Model {
	m := New()
	if len(vm) == 0 {
		return m
	}
	m.SetCount(len(vm))
	for i, e := range vm {
		if i >= len(m.fields) {
			break
		}
		m.fields[i].raw = formatVolume(e.Volume)
		m.fields[i].set = true
	}
	return m
}
