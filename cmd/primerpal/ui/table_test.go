package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainLines(s string) []string {
	return strings.Split(strings.TrimRight(ansi.Strip(s), "\n"), "\n")
}

func TestTable_Render(t *testing.T) {
	table := NewTable("Recent scripts", "When", "Oligos").AlignRight(1)
	table.AddRow("2024-05-01 12:00", "3")
	table.AddRow("2024-05-02 08:30", "24", "extra cell")
	require.Equal(t, 2, table.Len())

	lines := plainLines(table.Render(NewStyles(LightTheme())))
	require.Len(t, lines, 6)
	assert.Equal(t, "Recent scripts", strings.TrimSpace(lines[0]))
	assert.Empty(t, strings.TrimSpace(lines[1]))
	assert.Equal(t, "When             | Oligos", lines[2])
	assert.Equal(t, strings.Repeat("-", 25), lines[3])
	assert.Equal(t, "2024-05-01 12:00 |      3", lines[4])
	assert.Equal(t, "2024-05-02 08:30 |     24", lines[5])
	assert.NotContains(t, strings.Join(lines, "\n"), "extra cell")
}

func TestTable_ShortRowsArePadded(t *testing.T) {
	table := NewTable("", "A", "B")
	table.AddRow("x")

	lines := plainLines(table.Render(NewStyles(DarkTheme())))
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "x | "), "got %q", lines[2])
}

func TestTable_Empty(t *testing.T) {
	assert.Equal(t, "", NewTable("Nothing", "A").Render(NewStyles(DarkTheme())))
}
