package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Protocol.APILevel != "2.22" {
		t.Errorf("expected APILevel=2.22, got %s", cfg.Protocol.APILevel)
	}
	if cfg.Protocol.Style != "compact" {
		t.Errorf("expected Style=compact, got %s", cfg.Protocol.Style)
	}
	if cfg.Output.Filename != "oligo_dilution.py" {
		t.Errorf("expected Filename=oligo_dilution.py, got %s", cfg.Output.Filename)
	}
	if cfg.Water.CapacityWarningML != 20 {
		t.Errorf("expected CapacityWarningML=20, got %v", cfg.Water.CapacityWarningML)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Protocol.Style = "expanded"
	cfg.Output.Directory = "scripts"
	cfg.Logging.DebugMode = true
	cfg.Logging.Categories = map[string]bool{"ui": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Protocol.Style != "expanded" {
		t.Errorf("expected Style=expanded, got %s", loaded.Protocol.Style)
	}
	if loaded.Output.Directory != "scripts" {
		t.Errorf("expected Directory=scripts, got %s", loaded.Output.Directory)
	}
	if enabled, ok := loaded.Logging.Categories["ui"]; !ok || enabled {
		t.Errorf("expected ui category saved as disabled, got %v", loaded.Logging.Categories)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Output.Filename != DefaultConfig().Output.Filename {
		t.Errorf("expected defaults, got %+v", cfg.Output)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("water:\n  capacity_warning_ml: 15\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Water.CapacityWarningML != 15 {
		t.Errorf("expected 15, got %v", cfg.Water.CapacityWarningML)
	}
	if cfg.CapacityWarningUL() != 15000 {
		t.Errorf("expected 15000 µL, got %v", cfg.CapacityWarningUL())
	}
	if cfg.Protocol.APILevel != "2.22" {
		t.Errorf("expected default api level, got %s", cfg.Protocol.APILevel)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("protocol: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"style", func(c *Config) { c.Protocol.Style = "fancy" }, "style"},
		{"capacity", func(c *Config) { c.Water.CapacityWarningML = -1 }, "capacity_warning_ml"},
		{"history path", func(c *Config) { c.History.DatabasePath = "" }, "database_path"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.History.Enabled = false
	cfg.History.DatabasePath = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled history needs no path: %v", err)
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	ws := filepath.Join(string(filepath.Separator), "lab")

	if got := cfg.HistoryPath(ws); got != filepath.Join(ws, ".primerpal", "history.db") {
		t.Errorf("unexpected history path %s", got)
	}
	if got := cfg.OutputDir(ws); got != ws {
		t.Errorf("unexpected output dir %s", got)
	}
	abs := filepath.Join(ws, "elsewhere")
	cfg.Output.Directory = abs
	if got := cfg.OutputDir("/other"); got != abs {
		t.Errorf("absolute output dir should be kept, got %s", got)
	}
	if got := DefaultPath(ws); got != filepath.Join(ws, ".primerpal", "config.yaml") {
		t.Errorf("unexpected config path %s", got)
	}
}

func TestLoggingConfig_Options(t *testing.T) {
	lc := LoggingConfig{Level: "debug", DebugMode: true, Categories: map[string]bool{"store": false}}
	o := lc.Options()
	if !o.DebugMode || o.Level != "debug" || o.Categories["store"] {
		t.Errorf("unexpected options %+v", o)
	}

	var off LoggingConfig
	if off.Options().DebugMode {
		t.Error("zero config must not enable debug mode")
	}
}
