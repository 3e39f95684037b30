package volume

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSheet(t *testing.T) {
	in := "slot,volume\nA1,10\nA2,not-a-number\n,7.5\n"
	m, err := ReadSheet(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, NewMap(10, 0, 7.5), m.Snapshot())
}

func TestReadSheet_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"header only", "slot,volume\n", ErrEmptySheet},
		{"duplicate", "slot,volume\nA1,1\nA1,2\n", ErrDuplicateSlot},
		{"out of order", "slot,volume\nA2,1\nA1,2\n", ErrSlotOrder},
		{"duplicate after misplaced row", "slot,volume\nB1,1\n,2\nB1,3\n", ErrDuplicateSlot},
		{"label after blank row is order error", "slot,volume\n,1\nA1,2\n", ErrSlotOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSheet(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadSheet_TooManyRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("slot,volume\n")
	for i := 0; i < MaxSamples+1; i++ {
		sb.WriteString(",1\n")
	}
	_, err := ReadSheet(strings.NewReader(sb.String()))
	assert.ErrorIs(t, err, ErrTooManySamples)
}

func TestWriteSheet_ReadBack(t *testing.T) {
	vm := NewMap(12.5, 0, 40)
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, vm))

	m, err := ReadSheet(&buf)
	require.NoError(t, err)
	assert.Equal(t, vm, m.Snapshot())
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, 7))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "slot,volume", lines[0])
	assert.Equal(t, "B1,", lines[7])
}

func TestLoadSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volumes.csv")
	require.NoError(t, os.WriteFile(path, []byte("slot,volume\nA1,50\n"), 0644))

	m, err := LoadSheet(path)
	require.NoError(t, err)
	assert.Equal(t, 95.0, m.TotalWaterRequired())

	_, err = LoadSheet(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
