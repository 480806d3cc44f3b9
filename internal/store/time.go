package store

import (
	"math"
	"time"
)

// UnixSeconds converts t to fractional epoch seconds, the timestamp form used
// in payloads and persisted snapshots. The zero time maps to 0.
func UnixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromUnixSeconds is the inverse of UnixSeconds, accurate to the microsecond.
func FromUnixSeconds(f float64) time.Time {
	if f == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}
