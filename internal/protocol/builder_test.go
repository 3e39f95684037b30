package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primerpal/internal/volume"
)

func kinds(steps []Step) []Kind {
	out := make([]Kind, len(steps))
	for i, s := range steps {
		out[i] = s.Kind()
	}
	return out
}

func TestBuild_SingleSampleSequence(t *testing.T) {
	p, err := Build(volume.NewMap(50))
	require.NoError(t, err)

	water := Bottom(Reservoir, "A3", 3)
	want := []Step{
		PickUpTip{Instrument: LargePipette, In: PhaseWaterToWorking},
		Transfer{Instrument: LargePipette, Volume: 45, Source: water, Dest: Well(WorkingTubes, "A1"), In: PhaseWaterToWorking},
		Transfer{Instrument: LargePipette, Volume: 50, Source: water, Dest: Well(SampleTubes, "A1"), In: PhaseWaterToSample},
		Mix{Instrument: LargePipette, Well: Well(SampleTubes, "A1"), In: PhaseWaterToSample,
			Params: MixParams{Reps: 10, Volume: 37.5, ZAspirate: 1, ZDispenseMix: 8, ZDispenseFinal: 8}},
		DropTip{Instrument: LargePipette, In: PhaseWaterToSample},
		PickUpTip{Instrument: SmallPipette, In: PhaseSampleToWorking},
		Transfer{Instrument: SmallPipette, Volume: 5, Source: Well(SampleTubes, "A1"), Dest: Well(WorkingTubes, "A1"), In: PhaseSampleToWorking},
		Mix{Instrument: SmallPipette, Well: Well(WorkingTubes, "A1"), In: PhaseSampleToWorking,
			Params: MixParams{Reps: 5, Volume: 15, ZAspirate: 1, ZDispenseMix: 4, ZDispenseFinal: 4}},
		DropTip{Instrument: SmallPipette, In: PhaseSampleToWorking},
	}

	// Setup: five labware loads then two instruments.
	setup := p.StepsIn(PhaseSetup)
	require.Len(t, setup, 7)
	if diff := cmp.Diff(want, p.Steps[len(setup):]); diff != "" {
		t.Errorf("step sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SetupMatchesDeck(t *testing.T) {
	p, err := Build(volume.NewMap(1))
	require.NoError(t, err)

	var slots []int
	var pipettes []string
	for _, s := range p.StepsIn(PhaseSetup) {
		switch v := s.(type) {
		case LoadLabware:
			slots = append(slots, v.Labware.Slot)
		case LoadInstrument:
			pipettes = append(pipettes, v.Instrument.Model+"@"+v.Instrument.Mount+"/"+v.Instrument.TipRack)
		}
	}
	assert.Equal(t, []int{4, 5, 1, 2, 3}, slots)
	assert.Equal(t, []string{"p300_single_gen2@right/tips300", "p20_single_gen2@left/tips20"}, pipettes)
}

func TestBuild_Phase1ReusesOneTip(t *testing.T) {
	p, err := Build(volume.NewMap(10, 20, 30, 40))
	require.NoError(t, err)

	phase1 := p.StepsIn(PhaseWaterToWorking)
	assert.Equal(t, []Kind{KindPickUpTip, KindTransfer, KindTransfer, KindTransfer, KindTransfer}, kinds(phase1))
	for i, s := range phase1[1:] {
		tr := s.(Transfer)
		assert.Equal(t, 45.0, tr.Volume)
		assert.Equal(t, Well(WorkingTubes, volume.SlotAt(i).String()), tr.Dest)
		assert.Equal(t, Bottom(Reservoir, WaterWell, WaterDepth), tr.Source)
	}
}

func TestBuild_Phase2TipPattern(t *testing.T) {
	for n := 1; n <= volume.MaxSamples; n++ {
		vols := make([]float64, n)
		for i := range vols {
			vols[i] = float64(i + 1)
		}
		p, err := Build(volume.NewMap(vols...))
		require.NoError(t, err)

		phase2 := p.StepsIn(PhaseWaterToSample)
		var drops, pickups int
		for i, s := range phase2 {
			switch s.Kind() {
			case KindDropTip:
				drops++
				if i < len(phase2)-1 {
					assert.Equal(t, KindPickUpTip, phase2[i+1].Kind(), "n=%d: drop at %d not followed by pick-up", n, i)
				}
			case KindPickUpTip:
				pickups++
			}
		}
		assert.Equal(t, n, drops, "n=%d", n)
		assert.Equal(t, n-1, pickups, "n=%d", n)
		assert.Equal(t, KindDropTip, phase2[len(phase2)-1].Kind())
		assert.Equal(t, KindTransfer, phase2[0].Kind(), "phase 2 must start on the phase 1 tip")
	}
}

func TestBuild_MixVolumes(t *testing.T) {
	vm := volume.NewMap(10, 0, 33.3, 200)
	p, err := Build(vm)
	require.NoError(t, err)

	var sampleMixes, workingMixes []Mix
	for _, s := range p.Steps {
		m, ok := s.(Mix)
		if !ok {
			continue
		}
		switch m.In {
		case PhaseWaterToSample:
			sampleMixes = append(sampleMixes, m)
		case PhaseSampleToWorking:
			workingMixes = append(workingMixes, m)
		}
	}
	require.Len(t, sampleMixes, vm.Len())
	require.Len(t, workingMixes, vm.Len())
	for i, e := range vm {
		assert.Equal(t, 0.75*e.Volume, sampleMixes[i].Params.Volume, "slot %s", e.Slot)
		assert.Equal(t, 10, sampleMixes[i].Params.Reps)
		assert.Equal(t, 15.0, workingMixes[i].Params.Volume)
		assert.Equal(t, 5, workingMixes[i].Params.Reps)
	}
}

func TestBuild_Phase3FreshTipPerSlot(t *testing.T) {
	p, err := Build(volume.NewMap(1, 2, 3))
	require.NoError(t, err)

	phase3 := p.StepsIn(PhaseSampleToWorking)
	want := []Kind{}
	for i := 0; i < 3; i++ {
		want = append(want, KindPickUpTip, KindTransfer, KindMix, KindDropTip)
	}
	assert.Equal(t, want, kinds(phase3))
	for _, s := range phase3 {
		inst, _ := instrumentOf(s)
		assert.Equal(t, SmallPipette, inst)
	}
}

func TestBuild_TipUsage(t *testing.T) {
	p, err := Build(volume.NewMap(5, 5, 5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, TipUsage{LargePipette: 5, SmallPipette: 5}, p.Tips)
}

func TestBuild_WaterDrawnMatchesTotal(t *testing.T) {
	vm := volume.NewMap(10, 20)
	p, err := Build(vm)
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.WaterDrawn())
	assert.Equal(t, vm.Total(), p.WaterDrawn())
}

func TestBuild_Deterministic(t *testing.T) {
	vm := volume.NewMap(3, 1, 4, 1, 5, 9, 2, 6)
	a, err := Build(vm)
	require.NoError(t, err)
	b, err := Build(vm)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Steps, b.Steps); diff != "" {
		t.Errorf("Build is not deterministic:\n%s", diff)
	}
}

func TestBuild_RejectsInvalidMap(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, volume.ErrInvalidMap)

	_, err = Build(volume.Map{{Slot: "A1", Volume: -2}})
	assert.ErrorIs(t, err, volume.ErrInvalidMap)
}

func TestBuild_Options(t *testing.T) {
	p, err := Build(volume.NewMap(1), WithAPILevel("2.20"), WithDescription("custom"), WithAPILevel(""))
	require.NoError(t, err)
	assert.Equal(t, "2.20", p.APILevel)
	assert.Equal(t, "custom", p.Description)
}

func TestBuild_CopiesInput(t *testing.T) {
	vm := volume.NewMap(7)
	p, err := Build(vm)
	require.NoError(t, err)
	vm[0].Volume = 99
	assert.Equal(t, 7.0, p.Volumes[0].Volume)
}
