// Package scope provides a fyne widget plotting force over time.
package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tensile/pkg/companion"
	"github.com/itohio/tensile/pkg/units"
)

const defaultMaxPoints = 1000

// ScopeWidget displays current and peak force of a running test.
type ScopeWidget struct {
	widget.BaseWidget

	unit   units.Unit
	window float64

	mu        sync.RWMutex
	display   []companion.Record
	bounds    bounds
	maxPoints int
}

// New creates a scope showing at least window seconds.
func New(unit units.Unit, window float64) *ScopeWidget {
	s := &ScopeWidget{
		unit:      unit,
		window:    window,
		display:   make([]companion.Record, 0, defaultMaxPoints),
		maxPoints: defaultMaxPoints,
	}
	s.bounds = autoScale(nil, window)
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the plotted records.
// Call from the UI goroutine, e.g. inside fyne.Do.
func (s *ScopeWidget) UpdateData(records []companion.Record) {
	s.mu.Lock()
	s.display = Downsample(s.display, records, s.maxPoints)
	s.bounds = autoScale(s.display, s.window)
	s.mu.Unlock()

	s.Refresh()
}

// SetWindow changes the minimum visible time span.
func (s *ScopeWidget) SetWindow(window float64) {
	s.mu.Lock()
	s.window = window
	s.bounds = autoScale(s.display, window)
	s.mu.Unlock()

	s.Refresh()
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
