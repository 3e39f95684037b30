package protocol

// LabwareRole says what a piece of labware is used for.
type LabwareRole string

const (
	RoleLargeTips    LabwareRole = "large_tips"
	RoleSmallTips    LabwareRole = "small_tips"
	RoleSampleTubes  LabwareRole = "sample_tubes"
	RoleWorkingTubes LabwareRole = "working_tubes"
	RoleReservoir    LabwareRole = "water_reservoir"
)

// Labware is one rack on the deck.
type Labware struct {
	Name     string // variable name in the generated script
	LoadName string // Opentrons labware definition
	Slot     int    // deck position
	Role     LabwareRole
}

// InstrumentClass separates the two pipettes.
type InstrumentClass string

const (
	Large InstrumentClass = "large"
	Small InstrumentClass = "small"
)

// Instrument is a pipette and the tip rack it draws from.
type Instrument struct {
	Name    string
	Model   string
	Mount   string
	TipRack string
	Class   InstrumentClass
}

// Deck is the full fixed topology of the dilution protocol.
type Deck struct {
	Labware     []Labware
	Instruments []Instrument
	WaterSource Location
}

// Labware names, in the order they are loaded.
const (
	LargeTipRack = "tips300"
	SmallTipRack = "tips20"
	SampleTubes  = "oligo_tubes"
	WorkingTubes = "working_tubes"
	Reservoir    = "water_res"

	LargePipette = "p300"
	SmallPipette = "p20"

	// WaterWell is the reservoir position water is always drawn from.
	WaterWell = "A3"
	// WaterDepth is the aspiration height above the reservoir bottom (mm).
	WaterDepth = 3.0
)

// DefaultDeck returns the deck layout every generated protocol uses.
func DefaultDeck() Deck {
	return Deck{
		Labware: []Labware{
			{Name: LargeTipRack, LoadName: "opentrons_96_tiprack_300ul", Slot: 4, Role: RoleLargeTips},
			{Name: SmallTipRack, LoadName: "opentrons_96_tiprack_20ul", Slot: 5, Role: RoleSmallTips},
			{Name: SampleTubes, LoadName: "opentrons_24_tuberack_generic_2ml_screwcap", Slot: 1, Role: RoleSampleTubes},
			{Name: WorkingTubes, LoadName: "opentrons_24_tuberack_nest_1.5ml_snapcap", Slot: 2, Role: RoleWorkingTubes},
			{Name: Reservoir, LoadName: "opentrons_10_tuberack_falcon_4x50ml_6x15ml_conical", Slot: 3, Role: RoleReservoir},
		},
		Instruments: []Instrument{
			{Name: LargePipette, Model: "p300_single_gen2", Mount: "right", TipRack: LargeTipRack, Class: Large},
			{Name: SmallPipette, Model: "p20_single_gen2", Mount: "left", TipRack: SmallTipRack, Class: Small},
		},
		WaterSource: Bottom(Reservoir, WaterWell, WaterDepth),
	}
}

// Instrument looks up an instrument by class.
func (d Deck) Instrument(class InstrumentClass) (Instrument, bool) {
	for _, in := range d.Instruments {
		if in.Class == class {
			return in, true
		}
	}
	return Instrument{}, false
}

// Location is a well, optionally offset from its bottom.
type Location struct {
	Labware string
	Well    string
	// Z is the height above the well bottom in mm; only meaningful when
	// FromBottom is set. A plain well location targets the runtime default.
	Z          float64
	FromBottom bool
}

// Well returns a plain well location.
func Well(labware, well string) Location {
	return Location{Labware: labware, Well: well}
}

// Bottom returns a location z mm above the bottom of a well.
func Bottom(labware, well string, z float64) Location {
	return Location{Labware: labware, Well: well, Z: z, FromBottom: true}
}
