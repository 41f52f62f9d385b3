package console

import (
	"github.com/itohio/tensile/pkg/reading"
	"github.com/itohio/tensile/pkg/units"
)

const (
	cmdResume  byte = 'r'
	cmdNewTest byte = 'x'
	cmdToggle  byte = 'j'
	cmdCalib   byte = 'c'
	cmdEscape       = cmdNewTest
)

func menuLines(peak float64, unit units.Unit, mode reading.Mode) []string {
	return []string{
		"Measurement Paused. Peak: " + unit.Format(peak),
		"",
		"--------",
		"r) Resume measurement",
		"x) Start new test (reset peak and timestamp)",
		"j) Toggle output format (current: " + mode.String() + ")",
		"c) Enter calibration mode (future feature)",
	}
}
