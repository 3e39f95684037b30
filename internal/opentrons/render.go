// Package opentrons serializes a structured dilution protocol into an
// Opentrons Python API protocol script.
package opentrons

import (
	"fmt"
	"io"
	"strings"

	"primerpal/internal/logging"
	"primerpal/internal/protocol"
)

// Style selects the script layout.
type Style string

const (
	// StyleCompact writes the three phases as loops over vol_per_oligo. Only
	// the dict literal varies between volume maps.
	StyleCompact Style = "compact"
	// StyleExpanded writes one statement per protocol step.
	StyleExpanded Style = "expanded"
)

// Styles lists the supported styles.
var Styles = []Style{StyleCompact, StyleExpanded}

// ParseStyle validates a style name. An empty name selects StyleCompact.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleCompact:
		return StyleCompact, nil
	case StyleExpanded:
		return StyleExpanded, nil
	}
	return "", fmt.Errorf("unknown script style %q (valid: %v)", s, Styles)
}

// VolumesVar is the name of the embedded volume map.
const VolumesVar = "vol_per_oligo"

const indent = "    "

// Render writes p as a Python protocol script.
func Render(w io.Writer, p *protocol.Protocol, style Style) error {
	s, err := RenderString(p, style)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

// RenderString returns p as a Python protocol script.
func RenderString(p *protocol.Protocol, style Style) (string, error) {
	large, ok := p.Deck.Instrument(protocol.Large)
	if !ok {
		return "", fmt.Errorf("deck has no large instrument")
	}
	small, ok := p.Deck.Instrument(protocol.Small)
	if !ok {
		return "", fmt.Errorf("deck has no small instrument")
	}

	r := &renderer{p: p, large: large, small: small}
	r.header()
	switch style {
	case StyleCompact, "":
		r.compactBody()
	case StyleExpanded:
		r.expandedBody()
	default:
		return "", fmt.Errorf("unknown script style %q", style)
	}
	r.mixHelper()

	logging.Get(logging.CategoryRender).Debug("rendered %s script: %d bytes", style, r.sb.Len())
	return r.sb.String(), nil
}

type renderer struct {
	p     *protocol.Protocol
	large protocol.Instrument
	small protocol.Instrument
	sb    strings.Builder
}

func (r *renderer) line(depth int, format string, args ...interface{}) {
	if format != "" {
		r.sb.WriteString(strings.Repeat(indent, depth))
		fmt.Fprintf(&r.sb, format, args...)
	}
	r.sb.WriteByte('\n')
}

func (r *renderer) header() {
	r.line(0, "import opentrons.execute # type: ignore")
	r.line(0, "from opentrons import protocol_api # type: ignore")
	r.line(0, `metadata = {"apiLevel": "%s", "description": %s}`, r.p.APILevel, pyString(r.p.Description))
	r.line(0, "")
	r.line(0, "%s = %s  # type: ignore", VolumesVar, pyDict(r.p.Volumes))
	r.line(0, "")
	r.line(0, "def run(ctx: protocol_api.ProtocolContext):")
	r.line(1, "# Load labware")
	for _, lw := range r.p.Deck.Labware {
		r.loadLabware(lw)
	}
	r.line(0, "")
	r.line(1, "# Load pipettes")
	for _, in := range r.p.Deck.Instruments {
		r.loadInstrument(in)
	}
}

func (r *renderer) loadLabware(lw protocol.Labware) {
	r.line(1, `%s = ctx.load_labware("%s", "%d")`, lw.Name, lw.LoadName, lw.Slot)
}

func (r *renderer) loadInstrument(in protocol.Instrument) {
	r.line(1, `%s = ctx.load_instrument("%s", "%s", tip_racks=[%s])`, in.Name, in.Model, in.Mount, in.TipRack)
}

func (r *renderer) transferArgs(volume string, src, dst string) string {
	return fmt.Sprintf("%s, %s, %s, new_tip='never', drop_tip=False", volume, src, dst)
}

func mixArgs(vol string, mp protocol.MixParams) string {
	return fmt.Sprintf("mixreps=%d, vol=%s, z_asp=%s, z_disp_source_mix=%s, z_disp_destination=%s",
		mp.Reps, vol, pyNumber(mp.ZAspirate), pyNumber(mp.ZDispenseMix), pyNumber(mp.ZDispenseFinal))
}

var phaseComments = map[protocol.Phase]string{
	protocol.PhaseWaterToWorking:  "# Transfer water to working tubes",
	protocol.PhaseWaterToSample:   "# Transfer water to oligo tubes, reusing tip for first oligo",
	protocol.PhaseSampleToWorking: "# Transfer oligo to working tubes",
}

func (r *renderer) compactBody() {
	set := r.p.Settings
	water := pyLocation(r.p.Deck.WaterSource)
	lg, sm := r.large.Name, r.small.Name
	sample := func(idx string) string { return protocol.SampleTubes + "[" + idx + "]" }
	working := func(idx string) string { return protocol.WorkingTubes + "[" + idx + "]" }

	r.line(0, "")
	r.line(1, "%s", phaseComments[protocol.PhaseWaterToWorking])
	r.line(1, "%s.pick_up_tip()", lg)
	r.line(1, "for oligo in %s:", VolumesVar)
	r.line(2, "%s.transfer(%s)", lg, r.transferArgs(pyNumber(set.WorkingWater), water, working("oligo")))

	r.line(0, "")
	r.line(1, "%s", phaseComments[protocol.PhaseWaterToSample])
	r.line(1, "oligos = list(%s.items())", VolumesVar)
	r.line(1, "for i, (oligo, vol) in enumerate(oligos):")
	r.line(2, "%s.transfer(%s)", lg, r.transferArgs("vol", water, sample("oligo")))
	r.line(2, "custom_mix(%s, %s, %s)", lg, sample("oligo"),
		mixArgs(fmt.Sprintf("(vol * %s)", pyNumber(set.SampleMixFraction)), set.SampleMix))
	r.line(2, "if i < len(oligos) - 1:")
	r.line(3, "%s.drop_tip()", lg)
	r.line(3, "%s.pick_up_tip()", lg)
	r.line(1, "%s.drop_tip()", lg)

	r.line(0, "")
	r.line(1, "%s", phaseComments[protocol.PhaseSampleToWorking])
	r.line(1, "for oligo in %s:", VolumesVar)
	r.line(2, "%s.pick_up_tip()", sm)
	r.line(2, "%s.transfer(%s)", sm, r.transferArgs(pyNumber(set.SampleTransfer), sample("oligo"), working("oligo")))
	r.line(2, "custom_mix(%s, %s, %s)", sm, working("oligo"), mixArgs(pyNumber(set.WorkingMix.Volume), set.WorkingMix))
	r.line(2, "%s.drop_tip()", sm)
}

func (r *renderer) expandedBody() {
	last := protocol.PhaseSetup
	for _, s := range r.p.Steps {
		if s.Phase() == protocol.PhaseSetup {
			continue
		}
		if s.Phase() != last {
			last = s.Phase()
			r.line(0, "")
			r.line(1, "%s", phaseComments[last])
		}
		switch v := s.(type) {
		case protocol.PickUpTip:
			r.line(1, "%s.pick_up_tip()", v.Instrument)
		case protocol.DropTip:
			r.line(1, "%s.drop_tip()", v.Instrument)
		case protocol.Transfer:
			r.line(1, "%s.transfer(%s)", v.Instrument,
				r.transferArgs(pyNumber(v.Volume), pyLocation(v.Source), pyLocation(v.Dest)))
		case protocol.Mix:
			r.line(1, "custom_mix(%s, %s, %s)", v.Instrument, pyLocation(v.Well),
				mixArgs(pyNumber(v.Params.Volume), v.Params))
		}
	}
}

// mixHelper emits custom_mix from one repetition of the mix's primitive
// actions, so the script follows the same order as protocol.Mix.Expand.
func (r *renderer) mixHelper() {
	d := protocol.DefaultSettings().SampleMix
	r.line(0, "")
	r.line(0, "")
	r.line(0, "def custom_mix(pipette, well, mixreps=%d, vol=20, z_asp=%s, z_disp_source_mix=%s, z_disp_destination=%s):",
		d.Reps, pyNumber(d.ZAspirate), pyNumber(d.ZDispenseMix), pyNumber(d.ZDispenseFinal))

	one := protocol.Mix{Params: protocol.MixParams{Reps: 1}}
	for _, a := range one.Expand() {
		switch a.Kind {
		case protocol.ActionBoostFlowRates:
			r.line(1, "# Save original flow rates")
			r.line(1, "orig_asp = pipette.flow_rate.aspirate")
			r.line(1, "orig_disp = pipette.flow_rate.dispense")
			r.line(1, "# Increase flow rates for mixing")
			r.line(1, "pipette.flow_rate.aspirate *= %s", pyNumber(a.AspirateFactor))
			r.line(1, "pipette.flow_rate.dispense *= %s", pyNumber(a.DispenseFactor))
		case protocol.ActionAspirate:
			r.line(1, "for _ in range(mixreps):")
			r.line(2, "pipette.aspirate(vol, well.bottom(z_asp))")
		case protocol.ActionDispense:
			r.line(2, "pipette.dispense(vol, well.bottom(z_disp_source_mix))")
		case protocol.ActionRestoreFlowRates:
			r.line(1, "# Restore original flow rates before blow out")
			r.line(1, "pipette.flow_rate.aspirate = orig_asp")
			r.line(1, "pipette.flow_rate.dispense = orig_disp")
		case protocol.ActionBlowOut:
			// ZDispenseFinal is 0 here, so Z is the lift alone.
			r.line(1, "pipette.blow_out(well.bottom(z_disp_destination + %s))", pyNumber(a.Z))
		case protocol.ActionTouchTip:
			r.line(1, "# Touch tip to the well wall to remove any droplet")
			r.line(1, "pipette.touch_tip(well)")
		}
	}
}
