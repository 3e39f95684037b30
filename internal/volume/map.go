package volume

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMap is returned by Map.Validate.
var ErrInvalidMap = errors.New("invalid volume map")

// Entry is one slot of a Map.
type Entry struct {
	Slot   Slot
	Volume float64
}

// Map is the ordered slot -> volume mapping handed to the protocol emitter.
// Order is slot assignment order.
type Map []Entry

// NewMap assigns slots A1, A2, ... to the given volumes in order.
func NewMap(volumes ...float64) Map {
	m := make(Map, len(volumes))
	for i, v := range volumes {
		m[i] = Entry{Slot: SlotAt(i), Volume: v}
	}
	return m
}

// Len returns the sample count.
func (m Map) Len() int { return len(m) }

// Slots returns the slots in order.
func (m Map) Slots() []Slot {
	out := make([]Slot, len(m))
	for i, e := range m {
		out[i] = e.Slot
	}
	return out
}

// Volume returns the volume at slot, or 0 when the slot is absent.
func (m Map) Volume(slot Slot) float64 {
	for _, e := range m {
		if e.Slot == slot {
			return e.Volume
		}
	}
	return 0
}

// SampleVolume is the sum of the per-slot volumes.
func (m Map) SampleVolume() float64 {
	var sum float64
	for _, e := range m {
		sum += e.Volume
	}
	return sum
}

// Total is the minimum water needed: every sample volume plus the fixed
// working-tube allocation per sample.
func (m Map) Total() float64 {
	if len(m) == 0 {
		return 0
	}
	return m.SampleVolume() + WaterPerSampleUL*float64(len(m))
}

// Validate checks the structural invariants: 1..24 entries, slots densely
// assigned from A1, and non-negative finite volumes.
func (m Map) Validate() error {
	if len(m) < MinSamples || len(m) > MaxSamples {
		return fmt.Errorf("%w: %d samples (want %d..%d)", ErrInvalidMap, len(m), MinSamples, MaxSamples)
	}
	for i, e := range m {
		if want := SlotAt(i); e.Slot != want {
			return fmt.Errorf("%w: entry %d has slot %s, want %s", ErrInvalidMap, i, e.Slot, want)
		}
		if math.IsNaN(e.Volume) || math.IsInf(e.Volume, 0) || e.Volume < 0 {
			return fmt.Errorf("%w: slot %s volume %v", ErrInvalidMap, e.Slot, e.Volume)
		}
	}
	return nil
}

// FormatWater renders a water volume in µL as "95.00 µL (0.095 mL)".
func FormatWater(ul float64) string {
	return fmt.Sprintf("%.2f µL (%.3f mL)", ul, ul/1000)
}
