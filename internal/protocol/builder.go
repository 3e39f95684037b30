// Package protocol turns a volume map into the structured, ordered step
// list of the oligo dilution procedure.
package protocol

import (
	"fmt"

	"primerpal/internal/logging"
	"primerpal/internal/volume"
)

const (
	DefaultAPILevel    = "2.22"
	DefaultDescription = "Primer Pal oligo dilution! Note: water in tube should not exceed 20 mL to avoid contamination. Use 50 mL falcon tube in upper left large slot of rack, protocol will use one p300 and one p20 tip per each oligo."
)

// Settings are the fixed liquid-handling constants of the procedure.
type Settings struct {
	// WorkingWater is the water (µL) every working tube receives in phase 1.
	WorkingWater float64
	// SampleMixFraction scales a slot's volume into its phase 2 mix volume.
	SampleMixFraction float64
	// SampleMix is the phase 2 mix; Volume is filled per slot.
	SampleMix MixParams
	// SampleTransfer is the sample (µL) moved into each working tube.
	SampleTransfer float64
	// WorkingMix is the phase 3 mix.
	WorkingMix MixParams
}

// DefaultSettings returns the constants of the dilution procedure.
func DefaultSettings() Settings {
	return Settings{
		WorkingWater:      volume.WaterPerSampleUL,
		SampleMixFraction: 0.75,
		SampleMix:         MixParams{Reps: 10, ZAspirate: 1, ZDispenseMix: 8, ZDispenseFinal: 8},
		SampleTransfer:    5,
		WorkingMix:        MixParams{Reps: 5, Volume: 15, ZAspirate: 1, ZDispenseMix: 4, ZDispenseFinal: 4},
	}
}

// Protocol is a fully generated dilution procedure.
type Protocol struct {
	APILevel    string
	Description string
	Volumes     volume.Map
	Deck        Deck
	Settings    Settings
	Steps       []Step
	Tips        TipUsage
}

// Option customises Build.
type Option func(*Protocol)

// WithAPILevel overrides the declared runtime API level.
func WithAPILevel(level string) Option {
	return func(p *Protocol) {
		if level != "" {
			p.APILevel = level
		}
	}
}

// WithDescription overrides the metadata description.
func WithDescription(desc string) Option {
	return func(p *Protocol) {
		if desc != "" {
			p.Description = desc
		}
	}
}

// Build generates the protocol for vm. The map is expected to come from the
// volume model already; a map that breaks its invariants is rejected rather
// than repaired.
func Build(vm volume.Map, opts ...Option) (*Protocol, error) {
	if err := vm.Validate(); err != nil {
		return nil, err
	}

	p := &Protocol{
		APILevel:    DefaultAPILevel,
		Description: DefaultDescription,
		Volumes:     append(volume.Map(nil), vm...),
		Deck:        DefaultDeck(),
		Settings:    DefaultSettings(),
	}
	for _, opt := range opts {
		opt(p)
	}

	b := &builder{deck: p.Deck, set: p.Settings}
	b.setup()
	b.waterToWorking(p.Volumes)
	b.waterToSamples(p.Volumes)
	b.sampleToWorking(p.Volumes)
	p.Steps = b.steps

	usage, err := CheckTips(p.Steps)
	if err != nil {
		return nil, fmt.Errorf("generated protocol violates tip discipline: %w", err)
	}
	p.Tips = usage

	logging.Get(logging.CategoryProtocol).Debug("built protocol: %d samples, %d steps, tips %v",
		vm.Len(), len(p.Steps), usage)
	return p, nil
}

type builder struct {
	deck  Deck
	set   Settings
	steps []Step
}

func (b *builder) add(s ...Step) {
	b.steps = append(b.steps, s...)
}

func (b *builder) setup() {
	for _, lw := range b.deck.Labware {
		b.add(LoadLabware{Labware: lw})
	}
	for _, in := range b.deck.Instruments {
		b.add(LoadInstrument{Instrument: in})
	}
}

// waterToWorking fills every working tube with one large tip. The tip stays
// on for the first sample of the next phase.
func (b *builder) waterToWorking(vm volume.Map) {
	const ph = PhaseWaterToWorking
	b.add(PickUpTip{Instrument: LargePipette, In: ph})
	for _, e := range vm {
		b.add(Transfer{
			Instrument: LargePipette,
			Volume:     b.set.WorkingWater,
			Source:     b.deck.WaterSource,
			Dest:       Well(WorkingTubes, e.Slot.String()),
			In:         ph,
		})
	}
}

func (b *builder) waterToSamples(vm volume.Map) {
	const ph = PhaseWaterToSample
	for i, e := range vm {
		tube := Well(SampleTubes, e.Slot.String())
		mix := b.set.SampleMix
		mix.Volume = e.Volume * b.set.SampleMixFraction
		b.add(
			Transfer{Instrument: LargePipette, Volume: e.Volume, Source: b.deck.WaterSource, Dest: tube, In: ph},
			Mix{Instrument: LargePipette, Well: tube, Params: mix, In: ph},
		)
		if i < len(vm)-1 {
			b.add(DropTip{Instrument: LargePipette, In: ph}, PickUpTip{Instrument: LargePipette, In: ph})
		}
	}
	b.add(DropTip{Instrument: LargePipette, In: ph})
}

func (b *builder) sampleToWorking(vm volume.Map) {
	const ph = PhaseSampleToWorking
	for _, e := range vm {
		tube := Well(WorkingTubes, e.Slot.String())
		b.add(
			PickUpTip{Instrument: SmallPipette, In: ph},
			Transfer{
				Instrument: SmallPipette,
				Volume:     b.set.SampleTransfer,
				Source:     Well(SampleTubes, e.Slot.String()),
				Dest:       tube,
				In:         ph,
			},
			Mix{Instrument: SmallPipette, Well: tube, Params: b.set.WorkingMix, In: ph},
			DropTip{Instrument: SmallPipette, In: ph},
		)
	}
}

// StepsIn returns the steps belonging to phase ph, in order.
func (p *Protocol) StepsIn(ph Phase) []Step {
	var out []Step
	for _, s := range p.Steps {
		if s.Phase() == ph {
			out = append(out, s)
		}
	}
	return out
}

// WaterDrawn sums the volume transferred out of the water source.
func (p *Protocol) WaterDrawn() float64 {
	var sum float64
	for _, s := range p.Steps {
		if t, ok := s.(Transfer); ok && t.Source.Labware == p.Deck.WaterSource.Labware && t.Source.Well == p.Deck.WaterSource.Well {
			sum += t.Volume
		}
	}
	return sum
}
