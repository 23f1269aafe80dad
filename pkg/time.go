// Package pkg holds small helpers shared by the HTTP layer.
package pkg

import (
	"strconv"
	"time"
)

var durationUnits = []struct {
	suffix string
	size   time.Duration
}{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"μs", time.Microsecond},
	{"ns", time.Nanosecond},
}

// CompactDuration renders d with at most two units, e.g. "1m30s", "250ms", "12μs".
// Below one second only the largest unit is kept. Negative durations keep their sign.
func CompactDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	maxParts := 2
	if d < time.Second {
		maxParts = 1
	}
	out := sign
	parts := 0
	for _, u := range durationUnits {
		if d < u.size {
			continue
		}
		out += strconv.FormatInt(int64(d/u.size), 10) + u.suffix
		d %= u.size
		parts++
		if parts == maxParts || d == 0 {
			break
		}
	}
	return out
}
