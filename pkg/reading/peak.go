package reading

// Peak tracks the maximum value observed since the last reset. It starts at zero,
// so it never drops below zero.
type Peak struct {
	value float64
}

// Update records v and returns the new peak.
func (p *Peak) Update(v float64) float64 {
	if v >= p.value {
		p.value = v
	}
	return p.value
}

// Reset sets the peak back to zero.
func (p *Peak) Reset() {
	p.value = 0
}

// Value returns the current peak.
func (p *Peak) Value() float64 {
	return p.value
}
