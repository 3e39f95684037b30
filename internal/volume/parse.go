package volume

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ClampCount bounds n to [MinSamples, MaxSamples].
func ClampCount(n int) int {
	if n < MinSamples {
		return MinSamples
	}
	if n > MaxSamples {
		return MaxSamples
	}
	return n
}

// ParseCount turns raw form input into a sample count. Anything that is not
// an integer counts as 1; integers too large for int clamp like any other.
func ParseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return MinSamples
	}
	return ClampCount(n)
}

// ParseVolume turns raw form input into a volume in µL. Unparseable,
// non-finite and negative input all read as 0.
func ParseVolume(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
