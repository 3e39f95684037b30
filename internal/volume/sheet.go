package volume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gocarina/gocsv"
)

var (
	ErrEmptySheet     = errors.New("volume sheet has no rows")
	ErrTooManySamples = errors.New("volume sheet has too many rows")
	ErrDuplicateSlot  = errors.New("duplicate slot in volume sheet")
	ErrSlotOrder      = errors.New("volume sheet slots out of order")
)

// SheetRow is one line of a volume sheet.
type SheetRow struct {
	Slot   string `csv:"slot"`
	Volume string `csv:"volume"`
}

// ReadSheet parses a CSV volume sheet (header "slot,volume"). The slot
// column may be left blank; when present it must follow row-major order.
// Volumes are parsed as leniently as form input.
func ReadSheet(r io.Reader) (*Model, error) {
	var rows []*SheetRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse volume sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	if len(rows) > MaxSamples {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManySamples, len(rows), MaxSamples)
	}

	// Duplicates are reported before ordering: a repeated label is the more
	// useful message even though it also breaks row-major order.
	labels := make([]string, len(rows))
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, row := range rows {
		labels[i] = strings.ToUpper(strings.TrimSpace(row.Slot))
		if labels[i] == "" {
			continue
		}
		if !seen.Add(labels[i]) {
			return nil, fmt.Errorf("%w: %s (row %d)", ErrDuplicateSlot, labels[i], i+1)
		}
	}
	for i, label := range labels {
		if label == "" {
			continue
		}
		if want := SlotAt(i); Slot(label) != want {
			return nil, fmt.Errorf("%w: row %d is %s, want %s", ErrSlotOrder, i+1, label, want)
		}
	}

	m := New()
	m.SetCount(len(rows))
	for i, row := range rows {
		if err := m.SetVolume(SlotAt(i), row.Volume); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadSheet reads a volume sheet from path.
func LoadSheet(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume sheet: %w", err)
	}
	m, err := ReadSheet(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteSheet writes vm as a volume sheet.
func WriteSheet(w io.Writer, vm Map) error {
	rows := make([]*SheetRow, len(vm))
	for i, e := range vm {
		rows[i] = &SheetRow{Slot: e.Slot.String(), Volume: formatVolume(e.Volume)}
	}
	return writeRows(w, rows)
}

// WriteTemplate writes a sheet with n slots and blank volumes.
func WriteTemplate(w io.Writer, n int) error {
	slots := Slots(ClampCount(n))
	rows := make([]*SheetRow, len(slots))
	for i, s := range slots {
		rows[i] = &SheetRow{Slot: s.String()}
	}
	return writeRows(w, rows)
}

func writeRows(w io.Writer, rows []*SheetRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write volume sheet: %w", err)
	}
	return nil
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
