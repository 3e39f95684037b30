package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"primerpal/cmd/primerpal/ui"
	"primerpal/internal/logging"
	"primerpal/internal/output"
	"primerpal/internal/volume"
)

var formSheet string

// runInteractive opens the terminal form.
func runInteractive(cmd *cobra.Command) error {
	gen, closeFn, err := newGenerator("")
	if err != nil {
		return err
	}
	defer closeFn()

	var initial *volume.Model
	if formSheet != "" {
		if initial, err = volume.LoadSheet(formSheet); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	form := ui.NewFormModel(ui.FormOptions{
		Styles:     ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		OutputDir:  cfg.OutputDir(workspace),
		Filename:   cfg.Output.Filename,
		CapacityUL: cfg.CapacityWarningUL(),
		Initial:    initial,
		Save: func(vm volume.Map, path string) (output.Result, error) {
			return gen.Generate(ctx, vm, path)
		},
	})

	logging.Get(logging.CategoryUI).Info("starting interactive form")
	p := tea.NewProgram(form, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive form failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.Flags().StringVar(&formSheet, "sheet", "", "Prefill the form from a CSV volume sheet")
}
