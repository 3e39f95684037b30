package opentrons

import (
	"math"
	"strconv"
	"strings"

	"primerpal/internal/protocol"
	"primerpal/internal/volume"
)

// pyFloat formats v the way Python's repr() prints a float.
func pyFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "float('nan')"
	case math.IsInf(v, 1):
		return "float('inf')"
	case math.IsInf(v, -1):
		return "float('-inf')"
	}
	if abs := math.Abs(v); v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// pyNumber formats an argument: integral values print as ints.
func pyNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return pyFloat(v)
}

// pyString returns a single-quoted Python string literal.
func pyString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// pyDict renders the volume map as a Python dict literal.
func pyDict(vm volume.Map) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range vm {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pyString(e.Slot.String()))
		sb.WriteString(": ")
		sb.WriteString(pyFloat(e.Volume))
	}
	sb.WriteByte('}')
	return sb.String()
}

// pyLocation renders a well reference, e.g. water_res['A3'].bottom(3).
func pyLocation(loc protocol.Location) string {
	s := loc.Labware + "[" + pyString(loc.Well) + "]"
	if loc.FromBottom {
		s += ".bottom(" + pyNumber(loc.Z) + ")"
	}
	return s
}
