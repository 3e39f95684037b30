package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"primerpal/internal/output"
	"primerpal/internal/volume"
	"primerpal/internal/watch"
)

var (
	sheetCount  int
	sheetOutput string
	sheetForce  bool
)

// sheetCmd writes a blank volume sheet
var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Write a blank volume sheet template",
	Long: `Writes a CSV with one row per slot (A1, A2, ...) and an empty volume
column, ready to be filled in and passed to --sheet or 'primerpal watch'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sheetCount < volume.MinSamples || sheetCount > volume.MaxSamples {
			return fmt.Errorf("--count must be between %d and %d", volume.MinSamples, volume.MaxSamples)
		}
		if sheetOutput == "" || sheetOutput == "-" {
			return volume.WriteTemplate(cmd.OutOrStdout(), sheetCount)
		}
		if _, err := os.Stat(sheetOutput); err == nil && !sheetForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", sheetOutput)
		}
		f, err := os.Create(sheetOutput)
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		if err := volume.WriteTemplate(f, sheetCount); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write sheet: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sheet written to %s\n", sheetOutput)
		return nil
	},
}

var (
	watchSheet    string
	watchOutput   string
	watchStyle    string
	watchDebounce time.Duration
)

// watchCmd regenerates the script whenever the sheet changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the script every time the volume sheet is saved",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchSheet == "" {
		return fmt.Errorf("--sheet is required")
	}
	gen, closeFn, err := newGenerator(watchStyle)
	if err != nil {
		return err
	}
	defer closeFn()

	path := defaultOutputPath()
	if watchOutput != "" {
		path = output.ResolvePath("", watchOutput)
	}
	out := cmd.OutOrStdout()

	handler := func(ctx context.Context, vm volume.Map) error {
		res, err := gen.Generate(ctx, vm, path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "generation failed: %v\n", err)
			return err
		}
		fmt.Fprintf(out, "[%s] Script saved as %s (%d oligos)\n",
			time.Now().Format("15:04:05"), filepath.Base(res.Path), vm.Len())
		printTotal(out, res.TotalWater)
		return nil
	}

	sw, err := watch.NewSheetWatcher(watchSheet, handler, watch.Options{Debounce: watchDebounce})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "Watching %s (ctrl+c to stop)\n", sw.Path())
	if err := sw.Run(ctx); err != nil {
		return err
	}
	stats := sw.Stats()
	logger.Debug("watch finished",
		zap.Int("events", stats.Events),
		zap.Int("generations", stats.Generations),
		zap.Int("errors", stats.Errors))
	return nil
}

func init() {
	sheetCmd.Flags().IntVar(&sheetCount, "count", 0, "Number of slots (1-24)")
	sheetCmd.Flags().StringVarP(&sheetOutput, "output", "o", "", "Sheet file (default: stdout)")
	sheetCmd.Flags().BoolVar(&sheetForce, "force", false, "Overwrite an existing sheet")
	_ = sheetCmd.MarkFlagRequired("count")

	watchCmd.Flags().StringVar(&watchSheet, "sheet", "", "CSV volume sheet to watch")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output file (default: <output.directory>/<output.filename>)")
	watchCmd.Flags().StringVar(&watchStyle, "style", "", "Script style: compact or expanded (default from config)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")
}
