package dto

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// durationPattern accepts "[D ]HH:MM:SS[.ffffff]", "MM:SS" and plain seconds.
var durationPattern = regexp.MustCompile(`^(?:(-?\d+) )?(?:(?:(\d+):)?(\d+):)?(\d+)(?:\.(\d{1,6}))?$`)

// Duration is a time span written as "[D ]HH:MM:SS[.ffffff]". A bare JSON
// number is a count of seconds.
type Duration struct{ time.Duration }

// ParseDuration reads the textual form.
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("duration has wrong format, use [DD] [HH:[MM:]]ss[.uuuuuu]")
	}
	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	if frac := m[5]; frac != "" {
		for len(frac) < 6 {
			frac += "0"
		}
		us, _ := strconv.ParseInt(frac, 10, 64)
		d += time.Duration(us) * time.Microsecond
	}
	return d, nil
}

// FormatDuration writes d the way ParseDuration reads it.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	days := int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int64(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int64(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int64(d / time.Second)
	d -= time.Duration(s) * time.Second

	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if us := int64(d / time.Microsecond); us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	if days > 0 {
		out = fmt.Sprintf("%d %s", days, out)
	}
	if neg {
		out = "-" + out
	}
	return out
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		secs, err := n.Float64()
		if err != nil {
			return err
		}
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatDuration(d.Duration))
}

// DurationOf wraps d for output; nil stays nil.
func DurationOf(d *time.Duration) *Duration {
	if d == nil {
		return nil
	}
	return &Duration{Duration: *d}
}
