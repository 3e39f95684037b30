package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"primerpal/internal/opentrons"
	"primerpal/internal/output"
	"primerpal/internal/protocol"
	"primerpal/internal/store"
	"primerpal/internal/volume"
)

// volumeFlags collect a volume map from --count/--volumes or --sheet.
type volumeFlags struct {
	count    int
	countSet bool
	volumes  []string
	sheet    string
}

func (f *volumeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.count, "count", 0, "Number of oligos to dilute (1-24)")
	cmd.Flags().StringSliceVar(&f.volumes, "volumes", nil, "Water volume per oligo in µL, in slot order (e.g. 10,20)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "CSV volume sheet with slot,volume columns")
}

// modelFor reads the flags parsed for cmd and builds the volume model.
func (f *volumeFlags) modelFor(cmd *cobra.Command) (*volume.Model, error) {
	f.countSet = cmd.Flags().Changed("count")
	return f.model()
}

// model builds the volume model. Unparseable volumes read as 0 and an
// explicit count is clamped to 1..24; when both are given the count wins.
func (f *volumeFlags) model() (*volume.Model, error) {
	if f.sheet != "" {
		if f.countSet || len(f.volumes) > 0 {
			return nil, errors.New("--sheet cannot be combined with --count or --volumes")
		}
		return volume.LoadSheet(f.sheet)
	}

	n := f.count
	if !f.countSet {
		if len(f.volumes) == 0 {
			return nil, errors.New("no samples given: use --count, --volumes or --sheet")
		}
		n = len(f.volumes)
	}

	m := volume.New()
	m.SetCount(n)
	for i, raw := range f.volumes {
		if i >= m.Count() {
			break
		}
		if err := m.SetVolume(volume.SlotAt(i), raw); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// newGenerator builds a generator from the loaded config. The returned
// func closes the history store, if one was opened.
func newGenerator(style string) (*output.Generator, func(), error) {
	if style == "" {
		style = cfg.Protocol.Style
	}
	st, err := opentrons.ParseStyle(style)
	if err != nil {
		return nil, nil, err
	}
	gen := &output.Generator{Style: st, Options: cfg.ProtocolOptions()}
	closeFn := func() {}

	if cfg.History.Enabled {
		hs, err := store.NewHistoryStore(cfg.HistoryPath(workspace))
		if err != nil {
			// History is a convenience; generation still works without it.
			logger.Warn("history disabled", zap.Error(err))
		} else {
			gen.Recorder = hs
			closeFn = func() { _ = hs.Close() }
		}
	}
	return gen, closeFn, nil
}

func defaultOutputPath() string {
	return output.ResolvePath(cfg.OutputDir(workspace), cfg.Output.Filename)
}

// printTotal writes the water requirement and, above capacity, a warning.
func printTotal(w io.Writer, totalUL float64) {
	fmt.Fprintf(w, "Minimum volume molecular grade water needed: %s\n", volume.FormatWater(totalUL))
	if capUL := cfg.CapacityWarningUL(); capUL > 0 && totalUL > capUL {
		fmt.Fprintf(w, "Warning: water needed exceeds the %g mL reservoir capacity; refill during the run or split the plate.\n",
			cfg.Water.CapacityWarningML)
	} else {
		fmt.Fprintf(w, "Note: water in falcon tube should not exceed %g mL to avoid contamination.\n",
			cfg.Water.CapacityWarningML)
	}
}

var (
	generateVolumes volumeFlags
	generateOutput  string
	generateStyle   string
	generateStdout  bool
)

// generateCmd writes a protocol script
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the dilution protocol script",
	Long: `Builds the three-phase dilution protocol for the given volumes and writes
it as an Opentrons Python script.

Examples:
  primerpal generate --volumes 50,35.5,20
  primerpal generate --count 6 --volumes 10,10,10,10,10,10 --output plate1
  primerpal generate --sheet volumes.csv --style expanded --stdout`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	m, err := generateVolumes.modelFor(cmd)
	if err != nil {
		return err
	}
	gen, closeFn, err := newGenerator(generateStyle)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	vm := m.Snapshot()

	if generateStdout {
		_, script, err := gen.Preview(vm)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, script)
		return err
	}

	path := defaultOutputPath()
	if generateOutput != "" {
		path = output.ResolvePath("", generateOutput)
	}
	res, err := gen.Generate(cmd.Context(), vm, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Script saved as %s\n", filepath.Base(res.Path))
	printTotal(out, res.TotalWater)
	fmt.Fprintf(out, "Tips: %d %s, %d %s\n",
		res.Tips[protocol.LargePipette], protocol.LargePipette,
		res.Tips[protocol.SmallPipette], protocol.SmallPipette)
	logger.Debug("protocol generated",
		zap.String("path", res.Path),
		zap.String("sha256", res.Checksum),
		zap.Int("bytes", res.Bytes),
		zap.String("run_id", res.RecordID))
	return nil
}

var totalVolumes volumeFlags

// totalCmd prints the water requirement
var totalCmd = &cobra.Command{
	Use:   "total",
	Short: "Print the minimum water needed for the given volumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := totalVolumes.modelFor(cmd)
		if err != nil {
			return err
		}
		printTotal(cmd.OutOrStdout(), m.TotalWaterRequired())
		return nil
	},
}

var (
	planVolumes volumeFlags
	planDump    bool
)

// planCmd previews the protocol steps
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the protocol steps without writing a script",
	Long: `Renders a readable summary of the deck, every step of the three phases
and the tip usage. With --dump the structured steps are printed as Go values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := planVolumes.modelFor(cmd)
		if err != nil {
			return err
		}
		p, err := protocol.Build(m.Snapshot(), cfg.ProtocolOptions()...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if planDump {
			litter.Config.HidePrivateFields = false
			_, err := io.WriteString(out, litter.Sdump(p.Steps)+"\n")
			return err
		}

		md := planMarkdown(p)
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			_, err = io.WriteString(out, md)
			return err
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			_, err = io.WriteString(out, md)
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	},
}

// planMarkdown summarizes p as markdown.
func planMarkdown(p *protocol.Protocol) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Dilution plan: %d oligos\n\n", p.Volumes.Len())
	fmt.Fprintf(&sb, "API level %s. Water needed: **%s**.\n\n", p.APILevel, volume.FormatWater(p.Volumes.Total()))

	sb.WriteString("## Deck\n\n| Slot | Labware | Definition |\n|---|---|---|\n")
	for _, lw := range p.Deck.Labware {
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", lw.Slot, lw.Name, lw.LoadName)
	}
	sb.WriteString("\n| Pipette | Model | Mount | Tips |\n|---|---|---|---|\n")
	for _, in := range p.Deck.Instruments {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", in.Name, in.Model, in.Mount, in.TipRack)
	}

	sb.WriteString("\n## Volumes\n\n| Slot | Water (µL) | Mix (µL) |\n|---|---|---|\n")
	for _, e := range p.Volumes {
		fmt.Fprintf(&sb, "| %s | %g | %g |\n", e.Slot, e.Volume, e.Volume*p.Settings.SampleMixFraction)
	}

	for _, ph := range []protocol.Phase{protocol.PhaseWaterToWorking, protocol.PhaseWaterToSample, protocol.PhaseSampleToWorking} {
		fmt.Fprintf(&sb, "\n## %s\n\n", strings.ToUpper(ph.String()[:1])+ph.String()[1:])
		for i, s := range p.StepsIn(ph) {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, describeStep(s))
		}
	}

	sb.WriteString("\n## Tips\n\n")
	for _, in := range p.Deck.Instruments {
		fmt.Fprintf(&sb, "- %s: %d\n", in.Name, p.Tips[in.Name])
	}
	return sb.String()
}

func describeLocation(loc protocol.Location) string {
	s := loc.Labware + " " + loc.Well
	if loc.FromBottom {
		s += fmt.Sprintf(" (%g mm above bottom)", loc.Z)
	}
	return s
}

func describeStep(s protocol.Step) string {
	switch v := s.(type) {
	case protocol.PickUpTip:
		return v.Instrument + " picks up a tip"
	case protocol.DropTip:
		return v.Instrument + " drops its tip"
	case protocol.Transfer:
		return fmt.Sprintf("%s transfers %g µL from %s to %s",
			v.Instrument, v.Volume, describeLocation(v.Source), describeLocation(v.Dest))
	case protocol.Mix:
		return fmt.Sprintf("%s mixes %s: %d × %g µL",
			v.Instrument, describeLocation(v.Well), v.Params.Reps, v.Params.Volume)
	}
	return string(s.Kind())
}

func init() {
	generateVolumes.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: <output.directory>/<output.filename>)")
	generateCmd.Flags().StringVar(&generateStyle, "style", "", "Script style: compact or expanded (default from config)")
	generateCmd.Flags().BoolVar(&generateStdout, "stdout", false, "Print the script instead of writing a file")

	totalVolumes.register(totalCmd)

	planVolumes.register(planCmd)
	planCmd.Flags().BoolVar(&planDump, "dump", false, "Print the structured steps")
}
