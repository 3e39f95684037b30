package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of plain text under a header line. Cells past the
// header count are dropped and short rows are padded.
type Table struct {
	title   string
	headers []string
	right   []bool
	rows    [][]string
}

// NewTable returns an empty table.
func NewTable(title string, headers ...string) *Table {
	return &Table{title: title, headers: headers, right: make([]bool, len(headers))}
}

// AlignRight right-aligns the given columns, e.g. numbers.
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		if c >= 0 && c < len(t.right) {
			t.right[c] = true
		}
	}
	return t
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render draws the table. A table without rows renders as "".
func (t *Table) Render(styles Styles) string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	sep := styles.Muted.Render(" | ")
	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			align := lipgloss.Left
			if t.right[i] {
				align = lipgloss.Right
			}
			parts[i] = style.Width(widths[i]).Align(align).Render(cell)
		}
		return strings.Join(parts, sep)
	}

	rule := 3 * (len(widths) - 1)
	for _, w := range widths {
		rule += w
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(styles.Title.Render(t.title) + "\n")
	}
	sb.WriteString(line(t.headers, styles.Bold) + "\n")
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", rule)) + "\n")
	for _, row := range t.rows {
		sb.WriteString(line(row, styles.Body) + "\n")
	}
	return sb.String()
}
