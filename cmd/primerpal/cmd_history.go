package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"primerpal/cmd/primerpal/ui"
	"primerpal/internal/config"
	"primerpal/internal/store"
	"primerpal/internal/volume"
)

var historyLimit int

// historyCmd lists recent generations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently generated scripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		hs, err := openHistory()
		if err != nil {
			return err
		}
		defer hs.Close()

		runs, err := hs.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No scripts generated yet.")
			return nil
		}

		table := ui.NewTable("Recent scripts", "When", "Oligos", "Water (µL)", "Style", "File", "ID").AlignRight(1, 2)
		for _, r := range runs {
			table.AddRow(
				r.CreatedAt.Format("2006-01-02 15:04"),
				fmt.Sprint(r.SampleCount),
				fmt.Sprintf("%.2f", r.TotalWater),
				r.Style,
				filepath.Base(r.Path),
				shortID(r.ID),
			)
		}
		fmt.Fprint(out, table.Render(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
		fmt.Fprintf(out, "\n%s (schema v%d)\n", hs.Path(), hs.SchemaVersion())
		return nil
	},
}

// historyShowCmd prints one run with its volumes as a sheet
var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one generated script and its volumes",
	Long: `Prints the details of a recorded run followed by its volumes in sheet
format, so a previous plate can be regenerated with --sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hs, err := openHistory()
		if err != nil {
			return err
		}
		defer hs.Close()

		r, err := hs.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %s\n", r.ID)
		fmt.Fprintf(out, "Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "File:      %s\n", r.Path)
		fmt.Fprintf(out, "Style:     %s (API %s)\n", r.Style, r.APILevel)
		fmt.Fprintf(out, "Water:     %s\n", volume.FormatWater(r.TotalWater))
		fmt.Fprintf(out, "SHA-256:   %s\n\n", r.Checksum)
		return volume.WriteSheet(out, r.Volumes)
	},
}

func openHistory() (*store.HistoryStore, error) {
	if !cfg.History.Enabled {
		return nil, errors.New("history is disabled (history.enabled: false)")
	}
	return store.NewHistoryStore(cfg.HistoryPath(workspace))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var configForce bool

// configCmd groups config file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the primerpal config file",
}

// configInitCmd writes the default config
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath(workspace)
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultRecentLimit, "Number of runs to list")
	historyCmd.AddCommand(historyShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}
