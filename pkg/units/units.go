// Package units maps the calibration unit name onto periph.io physical quantities.
package units

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Kind is the physical dimension of a unit.
type Kind int

const (
	// None means calibrated values are plain numbers.
	None Kind = iota
	// Force is measured in newtons.
	Force
	// Mass is measured in grams.
	Mass
)

// Unit is a named display unit for calibrated values.
type Unit struct {
	Symbol string
	Kind   Kind
	force  physic.Force
	mass   physic.Mass
}

var known = map[string]Unit{
	"":    {Symbol: "", Kind: None},
	"N":   {Symbol: "N", Kind: Force, force: physic.Newton},
	"kN":  {Symbol: "kN", Kind: Force, force: physic.KiloNewton},
	"lbf": {Symbol: "lbf", Kind: Force, force: physic.PoundForce},
	"g":   {Symbol: "g", Kind: Mass, mass: physic.Gram},
	"kg":  {Symbol: "kg", Kind: Mass, mass: physic.KiloGram},
}

// Parse looks up a unit by symbol. Symbols are case-sensitive ("kN", not "KN").
func Parse(symbol string) (Unit, error) {
	u, ok := known[strings.TrimSpace(symbol)]
	if !ok {
		return Unit{}, errors.Errorf("unknown unit %q", symbol)
	}
	return u, nil
}

// MustParse is like Parse but panics on unknown symbols.
func MustParse(symbol string) Unit {
	u, err := Parse(symbol)
	if err != nil {
		panic(err)
	}
	return u
}

// Force converts v, expressed in this unit, to a physic.Force.
func (u Unit) Force(v float64) (physic.Force, bool) {
	if u.Kind != Force {
		return 0, false
	}
	return physic.Force(v * float64(u.force)), true
}

// Mass converts v, expressed in this unit, to a physic.Mass.
func (u Unit) Mass(v float64) (physic.Mass, bool) {
	if u.Kind != Mass {
		return 0, false
	}
	return physic.Mass(v * float64(u.mass)), true
}

// Convert expresses v, given in u, in unit to. Both units must measure the
// same dimension; the conversion goes through periph's nano-unit base.
func (u Unit) Convert(v float64, to Unit) (float64, error) {
	if u.Symbol == to.Symbol {
		return v, nil
	}
	switch {
	case u.Kind == Force && to.Kind == Force:
		f, _ := u.Force(v)
		return float64(f) / float64(to.force), nil
	case u.Kind == Mass && to.Kind == Mass:
		m, _ := u.Mass(v)
		return float64(m) / float64(to.mass), nil
	}
	return 0, errors.Errorf("cannot convert %q to %q", u.Symbol, to.Symbol)
}

// Format renders v with two decimals followed by the unit symbol.
func (u Unit) Format(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if u.Symbol == "" {
		return s
	}
	return s + " " + u.Symbol
}

// String returns the unit symbol.
func (u Unit) String() string {
	return u.Symbol
}
