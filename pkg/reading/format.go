package reading

import (
	"strconv"
	"strings"
	"time"
)

// Reading is one converted measurement.
type Reading struct {
	Elapsed time.Duration // Since test start
	Current float64
	Peak    float64
}

// Formatter renders a reading as a single output line without terminator.
type Formatter interface {
	Format(r Reading) string
}

// CSVFormatter renders "<current>,<peak>" with two decimals and no timestamp.
type CSVFormatter struct{}

// Format implements Formatter.
func (CSVFormatter) Format(r Reading) string {
	var b strings.Builder
	b.WriteString(formatFloat(r.Current, 2))
	b.WriteByte(',')
	b.WriteString(formatFloat(r.Peak, 2))
	return b.String()
}

// StructuredFormatter renders {"timestamp":T,"current":C,"peak":P} with three
// decimals per field. Timestamp is in seconds since test start.
type StructuredFormatter struct{}

// Format implements Formatter.
func (StructuredFormatter) Format(r Reading) string {
	var b strings.Builder
	b.WriteString(`{"timestamp":`)
	b.WriteString(formatFloat(r.Elapsed.Seconds(), 3))
	b.WriteString(`,"current":`)
	b.WriteString(formatFloat(r.Current, 3))
	b.WriteString(`,"peak":`)
	b.WriteString(formatFloat(r.Peak, 3))
	b.WriteByte('}')
	return b.String()
}

// FormatterFor returns the formatter for mode.
func FormatterFor(mode Mode) Formatter {
	if mode == Structured {
		return StructuredFormatter{}
	}
	return CSVFormatter{}
}

// Format renders current and peak in the given mode.
func Format(current, peak float64, mode Mode, elapsed time.Duration) string {
	return FormatterFor(mode).Format(Reading{Elapsed: elapsed, Current: current, Peak: peak})
}

func formatFloat(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	// Print tiny negative values as "0.00", not "-0.00"
	if strings.TrimLeft(s, "-0.") == "" {
		return s[strings.IndexByte(s, '0'):]
	}
	return s
}
