package config

// UIConfig holds terminal form configuration.
type UIConfig struct {
	// Theme selects the color palette: auto, light or dark.
	// auto asks the terminal for its background.
	Theme string `yaml:"theme"`
}

// ValidThemes lists the supported themes.
var ValidThemes = []string{"auto", "light", "dark"}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme: "auto",
	}
}

// IsValidTheme reports whether theme is supported. Empty means auto.
func IsValidTheme(theme string) bool {
	if theme == "" {
		return true
	}
	for _, t := range ValidThemes {
		if t == theme {
			return true
		}
	}
	return false
}
