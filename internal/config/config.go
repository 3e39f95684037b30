package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"primerpal/internal/opentrons"
	"primerpal/internal/output"
	"primerpal/internal/protocol"
)

// Dir is the per-workspace state directory.
const Dir = ".primerpal"

// FileName is the config file name inside Dir.
const FileName = "config.yaml"

// Config holds all primerpal configuration.
type Config struct {
	// Generated script settings
	Protocol ProtocolConfig `yaml:"protocol"`

	// Where scripts are written
	Output OutputConfig `yaml:"output"`

	// Reservoir capacity check
	Water WaterConfig `yaml:"water"`

	// Generation history database
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal form
	UI UIConfig `yaml:"ui"`
}

// ProtocolConfig configures the generated script.
type ProtocolConfig struct {
	APILevel    string `yaml:"api_level"`
	Description string `yaml:"description"`
	Style       string `yaml:"style"` // compact, expanded
}

// OutputConfig configures artifact placement.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Filename  string `yaml:"filename"`
}

// WaterConfig configures the water reservoir warning.
type WaterConfig struct {
	CapacityWarningML float64 `yaml:"capacity_warning_ml"`
}

// HistoryConfig configures the history store.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Protocol: ProtocolConfig{
			APILevel:    protocol.DefaultAPILevel,
			Description: protocol.DefaultDescription,
			Style:       string(opentrons.StyleCompact),
		},
		Output: OutputConfig{
			Directory: ".",
			Filename:  output.DefaultFilename,
		},
		Water: WaterConfig{
			CapacityWarningML: 20,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(Dir, "history.db"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
		UI: *DefaultUIConfig(),
	}
}

// DefaultPath returns the config file location for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, Dir, FileName)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := opentrons.ParseStyle(c.Protocol.Style); err != nil {
		return err
	}
	if c.Water.CapacityWarningML < 0 {
		return fmt.Errorf("water.capacity_warning_ml must not be negative: %v", c.Water.CapacityWarningML)
	}
	if c.History.Enabled && c.History.DatabasePath == "" {
		return fmt.Errorf("history.database_path required when history is enabled")
	}
	if !IsValidTheme(c.UI.Theme) {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	return nil
}

// ResolveIn makes a workspace-relative path absolute.
func ResolveIn(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

// OutputDir returns the absolute output directory for a workspace.
func (c *Config) OutputDir(workspace string) string {
	return ResolveIn(workspace, c.Output.Directory)
}

// HistoryPath returns the absolute history database path for a workspace.
func (c *Config) HistoryPath(workspace string) string {
	return ResolveIn(workspace, c.History.DatabasePath)
}

// CapacityWarningUL returns the reservoir warning threshold in µL.
func (c *Config) CapacityWarningUL() float64 {
	return c.Water.CapacityWarningML * 1000
}

// ProtocolOptions returns the build options configured for scripts.
func (c *Config) ProtocolOptions() []protocol.Option {
	return []protocol.Option{
		protocol.WithAPILevel(c.Protocol.APILevel),
		protocol.WithDescription(c.Protocol.Description),
	}
}
