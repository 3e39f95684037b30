package protocol

const (
	// AspirateBoost and DispenseBoost scale the instrument's flow rates for
	// the duration of a mix.
	AspirateBoost = 4.0
	DispenseBoost = 6.0

	// BlowOutLift raises the blow-out above the final dispense height (mm).
	BlowOutLift = 2.0
)

// MixParams parameterises one run of the mixing routine. Heights are mm
// above the well bottom.
type MixParams struct {
	Reps           int
	Volume         float64
	ZAspirate      float64
	ZDispenseMix   float64
	ZDispenseFinal float64
}

// ActionKind is a primitive pipette action inside a mix.
type ActionKind string

const (
	ActionBoostFlowRates   ActionKind = "boost_flow_rates"
	ActionAspirate         ActionKind = "aspirate"
	ActionDispense         ActionKind = "dispense"
	ActionRestoreFlowRates ActionKind = "restore_flow_rates"
	ActionBlowOut          ActionKind = "blow_out"
	ActionTouchTip         ActionKind = "touch_tip"
)

// Action is one primitive of an expanded mix.
type Action struct {
	Kind   ActionKind
	Volume float64
	// Z is the height above the well bottom for aspirate, dispense and
	// blow-out.
	Z float64
	// Flow rate multipliers, set on ActionBoostFlowRates only.
	AspirateFactor float64
	DispenseFactor float64
}

// Expand lists the primitive actions of the mix in execution order. Flow
// rates are restored before the blow-out so the finishing expulsion runs at
// the instrument's configured speed.
func (m Mix) Expand() []Action {
	p := m.Params
	reps := p.Reps
	if reps < 0 {
		reps = 0
	}
	out := make([]Action, 0, 2*reps+4)
	out = append(out, Action{
		Kind:           ActionBoostFlowRates,
		AspirateFactor: AspirateBoost,
		DispenseFactor: DispenseBoost,
	})
	for i := 0; i < reps; i++ {
		out = append(out,
			Action{Kind: ActionAspirate, Volume: p.Volume, Z: p.ZAspirate},
			Action{Kind: ActionDispense, Volume: p.Volume, Z: p.ZDispenseMix},
		)
	}
	out = append(out,
		Action{Kind: ActionRestoreFlowRates},
		Action{Kind: ActionBlowOut, Z: p.ZDispenseFinal + BlowOutLift},
		Action{Kind: ActionTouchTip},
	)
	return out
}
