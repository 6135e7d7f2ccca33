package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"archiver/internal/logging"
)

// Filter selects JSON log records. Zero values match everything.
type Filter struct {
	CycleID  string
	MinLevel string
}

// Match reports whether line passes the filter. Lines that are not JSON
// objects only match an empty filter.
func (f Filter) Match(line string) bool {
	if f.CycleID == "" && f.MinLevel == "" {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	if f.CycleID != "" {
		id, _ := record[logging.FieldCycleID].(string)
		if !strings.HasPrefix(id, f.CycleID) {
			return false
		}
	}
	if f.MinLevel != "" {
		level, _ := record[slog.LevelKey].(string)
		if logging.ParseLevel(level) < logging.ParseLevel(f.MinLevel) {
			return false
		}
	}
	return true
}

// Apply returns the lines that pass the filter.
func (f Filter) Apply(lines []string) []string {
	var out []string
	for _, line := range lines {
		if f.Match(line) {
			out = append(out, line)
		}
	}
	return out
}
