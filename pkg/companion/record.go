// Package companion records the structured stream of a tensile tester, stores
// finished tests with metadata and serves them over HTTP.
package companion

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotRecord is returned for lines that are not structured readings.
	ErrNotRecord = errors.New("not a record")
	// ErrNoData is returned when saving an empty session.
	ErrNoData = errors.New("no data to save")
)

// Record is one structured reading: seconds since test start, current and peak force.
type Record struct {
	Timestamp float64 `json:"timestamp"`
	Current   float64 `json:"current"`
	Peak      float64 `json:"peak"`
}

// ParseRecord parses a structured line. Missing fields read as zero.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, ErrNotRecord
	}

	var r Record
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return Record{}, errors.Wrap(ErrNotRecord, err.Error())
	}
	return r, nil
}
