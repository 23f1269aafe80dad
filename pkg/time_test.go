package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompactDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                         "0",
		850 * time.Nanosecond:                     "850ns",
		12*time.Microsecond + 300:                 "12μs",
		250*time.Millisecond + 4*time.Microsecond: "250ms",
		time.Second:                               "1s",
		90 * time.Second:                          "1m30s",
		26*time.Hour + 5*time.Minute + time.Second: "1d2h",
		-1500 * time.Millisecond:                  "-1s500ms",
	}
	for d, want := range cases {
		assert.Equal(t, want, CompactDuration(d), d.String())
	}
}
