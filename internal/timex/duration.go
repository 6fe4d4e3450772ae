// Package timex parses the human TTL strings used in configuration
// ("15m", "7d", "900") into time.Duration values.
package timex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTTL = errors.New("invalid ttl")

var units = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
}

// ParseTTL converts a TTL string into a duration.
//
// Accepted forms:
//
//	"900"   bare integer, seconds
//	"15m"   integer with a unit suffix: ms, s, m, h, d, w
//	"1h30m" any value time.ParseDuration accepts
//
// Zero and negative values are rejected.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTTL)
	}

	var d time.Duration

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(n) * time.Second
	} else if v, unit, ok := splitUnit(s); ok {
		d = time.Duration(v) * unit
	} else if pd, err := time.ParseDuration(s); err == nil {
		d = pd
	} else {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, s)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTTL, s)
	}
	return d, nil
}

func splitUnit(s string) (int64, time.Duration, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, false
	}
	unit, ok := units[s[i:]]
	if !ok {
		return 0, 0, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return n, unit, true
}

// Duration is a time.Duration that decodes from TTL strings in text-based
// configuration sources (env, JSON, YAML).
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := ParseTTL(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
