package companion

import (
	"math"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/itohio/tensile/pkg/units"
)

// Summary describes the peak forces of a set of tests.
type Summary struct {
	Unit        string  `json:"unit"`
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Lower3Sigma float64 `json:"lower_3sigma"`
	Upper3Sigma float64 `json:"upper_3sigma"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Median      float64 `json:"median"`
}

// Deviation is the distance of one test's peak from the mean.
type Deviation struct {
	TestName  string  `json:"test_name"`
	Peak      float64 `json:"peak"`
	Deviation float64 `json:"deviation"`
}

// Statistics computes peak force statistics over stored tests. Tests without a
// parsable peak force, or whose unit cannot be converted, are ignored.
type Statistics struct {
	unit  units.Unit
	names []string
	peaks []float64
}

// NewStatistics collects peak forces from tests expressed in unit. A test
// without a unit is assumed to be in unit already.
func NewStatistics(tests []Metadata, unit units.Unit) *Statistics {
	s := &Statistics{unit: unit}
	for _, t := range tests {
		value, symbol := splitPeak(t.PeakForce)
		if t.PeakUnit != "" {
			symbol = t.PeakUnit
		}
		peak, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		if symbol != "" {
			from, err := units.Parse(symbol)
			if err == nil {
				peak, err = from.Convert(peak, unit)
			}
			if err != nil {
				logrus.WithError(err).WithField("test", t.TestName).Debug("skipping test")
				continue
			}
		}
		name := t.TestName
		if name == "" {
			name = "Unknown"
		}
		s.names = append(s.names, name)
		s.peaks = append(s.peaks, peak)
	}
	return s
}

// Count returns the number of tests with a peak force.
func (s *Statistics) Count() int {
	return len(s.peaks)
}

// Mean returns the average peak force.
func (s *Statistics) Mean() float64 {
	if len(s.peaks) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range s.peaks {
		sum += p
	}
	return sum / float64(len(s.peaks))
}

// StdDev returns the sample standard deviation, 0 for fewer than two tests.
func (s *Statistics) StdDev() float64 {
	n := len(s.peaks)
	if n < 2 {
		return 0
	}
	mean := s.Mean()
	ss := 0.0
	for _, p := range s.peaks {
		ss += (p - mean) * (p - mean)
	}
	return math.Sqrt(ss / float64(n-1))
}

// Median returns the median peak force.
func (s *Statistics) Median() float64 {
	n := len(s.peaks)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.peaks...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Summary returns all statistics at once.
func (s *Statistics) Summary() Summary {
	sum := Summary{
		Unit:   s.unit.Symbol,
		Count:  s.Count(),
		Mean:   s.Mean(),
		StdDev: s.StdDev(),
		Median: s.Median(),
	}
	sum.Lower3Sigma = sum.Mean - 3*sum.StdDev
	sum.Upper3Sigma = sum.Mean + 3*sum.StdDev

	if len(s.peaks) > 0 {
		sum.Min, sum.Max = s.peaks[0], s.peaks[0]
		for _, p := range s.peaks[1:] {
			sum.Min = math.Min(sum.Min, p)
			sum.Max = math.Max(sum.Max, p)
		}
	}
	return sum
}

// Deviations returns each test's peak and its distance from the mean.
func (s *Statistics) Deviations() []Deviation {
	mean := s.Mean()
	out := make([]Deviation, len(s.peaks))
	for i, p := range s.peaks {
		out[i] = Deviation{TestName: s.names[i], Peak: p, Deviation: p - mean}
	}
	return out
}
