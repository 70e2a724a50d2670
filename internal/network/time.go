package network

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTime is returned by ParseTime on malformed input.
var ErrInvalidTime = errors.New("network: invalid time string")

// ParseTime parses "HH:MM:SS" into seconds since midnight. HH may exceed 24 for
// post-midnight schedules, matching GTFS convention.
func ParseTime(s string) (Timestamp, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, errors.Wrapf(ErrInvalidTime, "%q", s)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil || m < 0 || m > 59 || sec < 0 || sec > 59 || h < 0 {
		return 0, errors.Wrapf(ErrInvalidTime, "%q", s)
	}
	return Timestamp(h*3600 + m*60 + sec), nil
}

// FormatTime renders seconds since midnight as "HH:MM:SS". Round-trips through ParseTime.
func FormatTime(t Timestamp) string {
	h := t / 3600
	m := (t % 3600) / 60
	s := t % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

const railwayStationSuffix = " Railway Station"

// ShortStopName strips everything from " Railway Station" onward, e.g.
// "Laburnum Railway Station (Blackburn)" -> "Laburnum".
func ShortStopName(name string) string {
	if idx := strings.Index(name, railwayStationSuffix); idx >= 0 {
		return name[:idx]
	}
	return name
}

func normalizeForCompare(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func containsNormalized(name, normalizedQuery string) bool {
	return strings.Contains(normalizeForCompare(name), normalizedQuery)
}

// wordBits is the width used by IsZero's word-sized scan; matches the native uint size
// class used to store a marked-stop bitmap.
const wordBits = 64

// IsZero reports whether every word in a marked-stop bitmap is zero, scanning in
// word-sized chunks rather than bit by bit.
func IsZero(words []uint64) bool {
	for _, w := range words {
		if w != 0 {
			return false
		}
	}
	return true
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func cos(rad float64) float64       { return math.Cos(rad) }
func sqrt(v float64) float64        { return math.Sqrt(v) }
