package protocol

import "fmt"

// Kind identifies a step type.
type Kind string

const (
	KindLoadLabware    Kind = "load_labware"
	KindLoadInstrument Kind = "load_instrument"
	KindPickUpTip      Kind = "pick_up_tip"
	KindDropTip        Kind = "drop_tip"
	KindTransfer       Kind = "transfer"
	KindMix            Kind = "mix"
)

// Phase groups steps by the stage of the dilution they belong to.
type Phase int

const (
	PhaseSetup Phase = iota
	// PhaseWaterToWorking puts the fixed water allocation in every working tube.
	PhaseWaterToWorking
	// PhaseWaterToSample dilutes each sample tube and mixes it.
	PhaseWaterToSample
	// PhaseSampleToWorking moves diluted sample into the working tubes.
	PhaseSampleToWorking
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseWaterToWorking:
		return "water to working tubes"
	case PhaseWaterToSample:
		return "water to sample tubes"
	case PhaseSampleToWorking:
		return "sample to working tubes"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Step is one typed operation of a protocol.
type Step interface {
	Kind() Kind
	Phase() Phase
}

// LoadLabware places a rack on the deck.
type LoadLabware struct {
	Labware Labware
}

func (LoadLabware) Kind() Kind   { return KindLoadLabware }
func (LoadLabware) Phase() Phase { return PhaseSetup }

// LoadInstrument mounts a pipette.
type LoadInstrument struct {
	Instrument Instrument
}

func (LoadInstrument) Kind() Kind   { return KindLoadInstrument }
func (LoadInstrument) Phase() Phase { return PhaseSetup }

// PickUpTip acquires a fresh tip on an instrument.
type PickUpTip struct {
	Instrument string
	In         Phase
}

func (PickUpTip) Kind() Kind     { return KindPickUpTip }
func (s PickUpTip) Phase() Phase { return s.In }

// DropTip releases the tip an instrument holds.
type DropTip struct {
	Instrument string
	In         Phase
}

func (DropTip) Kind() Kind     { return KindDropTip }
func (s DropTip) Phase() Phase { return s.In }

// Transfer moves Volume µL from Source to Dest with the tip already held.
type Transfer struct {
	Instrument string
	Volume     float64
	Source     Location
	Dest       Location
	In         Phase
}

func (Transfer) Kind() Kind     { return KindTransfer }
func (s Transfer) Phase() Phase { return s.In }

// Mix runs the mixing routine in a well.
type Mix struct {
	Instrument string
	Well       Location
	Params     MixParams
	In         Phase
}

func (Mix) Kind() Kind     { return KindMix }
func (s Mix) Phase() Phase { return s.In }

// instrumentOf returns the instrument a tip-related step acts on.
func instrumentOf(s Step) (string, bool) {
	switch v := s.(type) {
	case PickUpTip:
		return v.Instrument, true
	case DropTip:
		return v.Instrument, true
	case Transfer:
		return v.Instrument, true
	case Mix:
		return v.Instrument, true
	}
	return "", false
}
