package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinuteOfDay is a time of day expressed as minutes since midnight, parsed
// from "HH:MM" in YAML.
type MinuteOfDay int

// UnmarshalYAML parses "HH:MM" into minutes since midnight.
func (m *MinuteOfDay) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseMinuteOfDay(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMinuteOfDay converts "HH:MM" into minutes since midnight.
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, NewValidationError("off_hours", "expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, NewValidationError("off_hours", "invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, NewValidationError("off_hours", "invalid minute in %q", s)
	}
	return MinuteOfDay(hour*60 + minute), nil
}

// OffHoursWindow suppresses job firings between Start (inclusive) and End
// (exclusive). Windows where Start > End wrap past midnight.
type OffHoursWindow struct {
	Start MinuteOfDay `yaml:"start"`
	End   MinuteOfDay `yaml:"end"`
}

// Contains reports whether t falls inside the window.
func (w OffHoursWindow) Contains(t time.Time) bool {
	minute := MinuteOfDay(t.Hour()*60 + t.Minute())
	if w.Start <= w.End {
		return minute >= w.Start && minute < w.End
	}
	// Wraps midnight: [start, 24:00) plus [00:00, end).
	return minute >= w.Start || minute < w.End
}

func (w OffHoursWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}
