package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTipAlreadyHeld = errors.New("instrument already holds a tip")
	ErrNoTipHeld      = errors.New("instrument holds no tip")
	ErrTipNotDropped  = errors.New("tip still held at end of protocol")
)

// TipUsage counts the tips each instrument consumes.
type TipUsage map[string]int

// CheckTips replays the tip discipline of steps: an instrument picks up at
// most one tip at a time, only liquid-handles while holding one, and ends
// the protocol without one.
func CheckTips(steps []Step) (TipUsage, error) {
	held := make(map[string]bool)
	usage := make(TipUsage)
	for i, s := range steps {
		inst, ok := instrumentOf(s)
		if !ok {
			continue
		}
		switch s.Kind() {
		case KindPickUpTip:
			if held[inst] {
				return nil, fmt.Errorf("step %d: %s: %w", i, inst, ErrTipAlreadyHeld)
			}
			held[inst] = true
			usage[inst]++
		case KindDropTip:
			if !held[inst] {
				return nil, fmt.Errorf("step %d: %s: %w", i, inst, ErrNoTipHeld)
			}
			held[inst] = false
		default:
			if !held[inst] {
				return nil, fmt.Errorf("step %d (%s): %s: %w", i, s.Kind(), inst, ErrNoTipHeld)
			}
		}
	}
	for inst, h := range held {
		if h {
			return nil, fmt.Errorf("%s: %w", inst, ErrTipNotDropped)
		}
	}
	return usage, nil
}
