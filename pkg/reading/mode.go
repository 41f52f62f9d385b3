package reading

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects the output formatter.
type Mode int

const (
	// CSV emits "<current>,<peak>".
	CSV Mode = iota
	// Structured emits a JSON object with timestamp, current and peak.
	Structured
)

// String returns the name shown in the menu.
func (m Mode) String() string {
	if m == Structured {
		return "JSON"
	}
	return "CSV"
}

// Toggle flips between CSV and Structured.
func (m Mode) Toggle() Mode {
	if m == Structured {
		return CSV
	}
	return Structured
}

// ParseMode parses "csv", "json" or "structured" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return CSV, nil
	case "json", "structured":
		return Structured, nil
	}
	return CSV, errors.Errorf("unknown output format %q", s)
}
