package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Range is a half-open [Start, End) working interval within a day.
type Range struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Day is one weekday entry of the recurring template.
type Day struct {
	Enabled bool    `json:"enabled"`
	Ranges  []Range `json:"ranges,omitempty"`
}

// Weekly is a professional's recurring template, keyed by weekday. A nil or
// empty Weekly means the professional has no schedule configured, which is
// distinct from every day being disabled.
type Weekly map[time.Weekday]Day

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Configured reports whether the template has at least one weekday entry.
func (w Weekly) Configured() bool {
	return len(w) > 0
}

// MarshalJSON renders lowercase weekday keys ("monday", ...), the format the
// clinic CRUD stores in the professionals.weekly_schedule column.
func (w Weekly) MarshalJSON() ([]byte, error) {
	out := make(map[string]Day, len(w))
	for wd, day := range w {
		out[strings.ToLower(wd.String())] = day
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Weekly) UnmarshalJSON(data []byte) error {
	var raw map[string]Day
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schedule: invalid weekly schedule: %w", err)
	}
	parsed := make(Weekly, len(raw))
	for name, day := range raw {
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("schedule: unknown weekday %q", name)
		}
		parsed[wd] = day
	}
	*w = parsed
	return nil
}
