package reading

import "time"

// State is the mutable measurement state owned by the control loop.
type State struct {
	Mode      Mode
	Peak      Peak
	Current   float64
	TestStart time.Time
}

// NewState creates a state for a test starting at now.
func NewState(mode Mode, now time.Time) *State {
	return &State{
		Mode:      mode,
		TestStart: now,
	}
}

// NewTest resets the peak and restarts elapsed time at now.
func (s *State) NewTest(now time.Time) {
	s.Peak.Reset()
	s.TestStart = now
}

// Elapsed returns the time since test start.
func (s *State) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.TestStart)
}

// ToggleMode flips the output format and returns the new mode.
func (s *State) ToggleMode() Mode {
	s.Mode = s.Mode.Toggle()
	return s.Mode
}
