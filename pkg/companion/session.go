package companion

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/itohio/tensile/pkg/units"
)

const timestampColumn = "timestamp_s"

// csvHeader returns the column header of exported and stored tests.
func csvHeader(unit units.Unit) []string {
	if unit.Symbol == "" {
		return []string{timestampColumn, "current", "peak"}
	}
	return []string{timestampColumn, "current_" + unit.Symbol, "peak_" + unit.Symbol}
}

// Session buffers the records of the test in progress.
type Session struct {
	mu      sync.RWMutex
	records []Record
	started time.Time
	unit    units.Unit
	now     func() time.Time
}

// NewSession creates an empty session starting now. Values are in unit.
func NewSession(unit units.Unit) *Session {
	s := &Session{unit: unit, now: time.Now}
	s.started = s.now()
	return s
}

// Add appends a record.
func (s *Session) Add(r Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
}

// Consume adds records from ch until it is closed or ctx is done.
func (s *Session) Consume(ctx context.Context, ch <-chan Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			s.Add(r)
		}
	}
}

// Records returns a copy of the buffered records.
func (s *Session) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

// Len returns the number of buffered records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Last returns the latest record.
func (s *Session) Last() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Peak returns the peak of the latest record, or 0 without data.
func (s *Session) Peak() float64 {
	r, _ := s.Last()
	return r.Peak
}

// Unit returns the unit of the recorded values.
func (s *Session) Unit() units.Unit {
	return s.unit
}

// Started returns when the session was created or last cleared.
func (s *Session) Started() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Clear drops all records and restarts the session clock.
func (s *Session) Clear() {
	s.mu.Lock()
	s.records = nil
	s.started = s.now()
	s.mu.Unlock()
}

// Save writes the session as CSV into dir. An empty name becomes
// test_YYYYMMDD_HHMMSS.csv from the session start.
func (s *Session) Save(dir, name string) (string, error) {
	records := s.Records()
	if len(records) == 0 {
		return "", ErrNoData
	}
	if name == "" {
		name = "test_" + s.Started().Format("20060102_150405") + ".csv"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := WriteCSV(f, records, s.unit); err != nil {
		return "", err
	}
	return path, f.Close()
}

// WriteCSV writes the column header followed by one row per record with three decimals.
func WriteCSV(w io.Writer, records []Record, unit units.Unit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader(unit)); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, r := range records {
		row := []string{fmt3(r.Timestamp), fmt3(r.Current), fmt3(r.Peak)}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// ReadCSV reads rows written by WriteCSV. The header row is skipped.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read csv")
		}
		if len(row) < 3 || row[0] == timestampColumn {
			continue
		}

		var rec Record
		var vals [3]float64
		for i := range vals {
			vals[i], err = strconv.ParseFloat(row[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad value %q", row[i])
			}
		}
		rec.Timestamp, rec.Current, rec.Peak = vals[0], vals[1], vals[2]
		records = append(records, rec)
	}
}

func fmt3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
