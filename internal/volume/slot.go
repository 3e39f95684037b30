// Package volume holds the per-sample volume model that feeds protocol
// generation: slot labelling, lenient input parsing, and the derived water
// requirement.
package volume

import (
	"fmt"
	"strconv"
)

const (
	// MinSamples and MaxSamples bound the sample count (one 24-tube rack).
	MinSamples = 1
	MaxSamples = 24

	// SlotsPerRow is the column count of the tube racks.
	SlotsPerRow = 6

	// WaterPerSampleUL is the fixed water allocation (µL) each working tube
	// receives before the sample is added.
	WaterPerSampleUL = 45.0
)

// Slot is a rack position label such as "A1" or "D6".
type Slot string

func (s Slot) String() string { return string(s) }

// SlotAt returns the row-major label for the zero-based position i.
func SlotAt(i int) Slot {
	return Slot(fmt.Sprintf("%c%d", 'A'+i/SlotsPerRow, i%SlotsPerRow+1))
}

// Slots returns the first n labels in assignment order.
func Slots(n int) []Slot {
	if n <= 0 {
		return nil
	}
	out := make([]Slot, n)
	for i := range out {
		out[i] = SlotAt(i)
	}
	return out
}

// ParseSlot validates a label and returns its zero-based position.
func ParseSlot(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid slot %q", s)
	}
	row := s[0]
	if row < 'A' || row >= 'A'+MaxSamples/SlotsPerRow {
		return 0, fmt.Errorf("invalid slot %q: row out of range", s)
	}
	col, err := strconv.Atoi(s[1:])
	if err != nil || col < 1 || col > SlotsPerRow {
		return 0, fmt.Errorf("invalid slot %q: column out of range", s)
	}
	return int(row-'A')*SlotsPerRow + col - 1, nil
}
