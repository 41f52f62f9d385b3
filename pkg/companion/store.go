package companion

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/itohio/tensile/pkg/units"
)

// DateTimeLayout is the format of the "# Date:" header.
const DateTimeLayout = "2006-01-02 15:04:05"

const dateFolderLayout = "2006-01-02"

// ErrBadTestRef is returned for a date or file name that does not name a stored test.
var ErrBadTestRef = errors.New("invalid test reference")

// Metadata is the comment header of a stored test.
type Metadata struct {
	TestName   string `json:"test_name"`
	DateTime   string `json:"datetime"`
	Technician string `json:"technician"`
	PeakForce  string `json:"peak_force"`
	PeakUnit   string `json:"peak_unit"`
	Notes      string `json:"notes"`
	Path       string `json:"filepath,omitempty"`
	DateFolder string `json:"date_folder,omitempty"`
}

// Store keeps tests in per-day folders below a base directory.
type Store struct {
	dir  string
	unit units.Unit
	now  func() time.Time
}

// NewStore returns a store rooted at dir saving values in unit.
func NewStore(dir string, unit units.Unit) *Store {
	return &Store{dir: dir, unit: unit, now: time.Now}
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Unit returns the unit new tests are saved in.
func (s *Store) Unit() units.Unit {
	return s.unit
}

// Path returns the file of a stored test named by its date folder and file name.
func (s *Store) Path(date, name string) (string, error) {
	if _, err := time.Parse(dateFolderLayout, date); err != nil {
		return "", errors.Wrapf(ErrBadTestRef, "date %q", date)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".csv" {
		return "", errors.Wrapf(ErrBadTestRef, "file %q", name)
	}
	return filepath.Join(s.dir, date, name), nil
}

// NewTestPath returns dir/YYYY-MM-DD/<name>_HHMMSS.csv for a test taken at at,
// creating the date folder. A zero at means now.
func (s *Store) NewTestPath(name string, at time.Time) (string, error) {
	if at.IsZero() {
		at = s.now()
	}
	folder := filepath.Join(s.dir, at.Format(dateFolderLayout))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", folder)
	}
	return filepath.Join(folder, SanitizeFilename(name)+"_"+at.Format("150405")+".csv"), nil
}

// Save writes records to path preceded by the metadata header. The peak force
// is taken from the last record.
func (s *Store) Save(path string, meta Metadata, records []Record) error {
	if meta.TestName == "" {
		meta.TestName = "Unknown"
	}
	if meta.Technician == "" {
		meta.Technician = "Unknown"
	}
	if meta.DateTime == "" {
		meta.DateTime = s.now().Format(DateTimeLayout)
	}
	peak := 0.0
	if len(records) > 0 {
		peak = records[len(records)-1].Peak
	}
	meta.PeakForce = fmt3(peak)
	meta.PeakUnit = s.unit.Symbol

	var buf bytes.Buffer
	writeHeader(&buf, meta)
	if err := WriteCSV(&buf, records, s.unit); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "failed to write %s", path)
}

func writeHeader(buf *bytes.Buffer, meta Metadata) {
	peak := meta.PeakForce
	if peak == "" {
		peak = "0.000"
	}
	if meta.PeakUnit != "" {
		peak += " " + meta.PeakUnit
	}
	buf.WriteString("# Test Name: " + oneLine(meta.TestName) + "\n")
	buf.WriteString("# Date: " + oneLine(meta.DateTime) + "\n")
	buf.WriteString("# Technician: " + oneLine(meta.Technician) + "\n")
	buf.WriteString("# Peak Force: " + oneLine(peak) + "\n")

	notes := strings.TrimSpace(strings.ReplaceAll(meta.Notes, "\r\n", "\n"))
	if notes == "" {
		buf.WriteString("# Notes: \n")
	} else {
		for _, line := range strings.Split(notes, "\n") {
			buf.WriteString("# Notes: " + oneLine(line) + "\n")
		}
	}
	buf.WriteString("#\n")
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// oneLine keeps a header field on its own line.
func oneLine(v string) string {
	return strings.TrimSpace(lineBreaks.Replace(v))
}

// ReadMetadata parses the comment header of a stored test.
func (s *Store) ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	meta := Metadata{Path: path}
	var notes []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		content := strings.TrimSpace(line[1:])

		switch {
		case strings.HasPrefix(content, "Test Name:"):
			meta.TestName = headerValue(content, "Test Name:")
		case strings.HasPrefix(content, "Date:"):
			meta.DateTime = headerValue(content, "Date:")
		case strings.HasPrefix(content, "Technician:"):
			meta.Technician = headerValue(content, "Technician:")
		case strings.HasPrefix(content, "Peak Force:"):
			meta.PeakForce, meta.PeakUnit = splitPeak(headerValue(content, "Peak Force:"))
		case strings.HasPrefix(content, "Notes:"):
			if note := headerValue(content, "Notes:"); note != "" {
				notes = append(notes, note)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, errors.Wrapf(err, "failed to read %s", path)
	}

	meta.Notes = strings.Join(notes, "\n")
	return meta, nil
}

func headerValue(content, key string) string {
	return strings.TrimSpace(strings.TrimPrefix(content, key))
}

// splitPeak splits "4.500 kN" into value and unit symbol.
func splitPeak(v string) (value, unit string) {
	fields := strings.Fields(v)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], fields[1]
}

// UpdateMetadata rewrites the header of path keeping its data rows. An empty
// peak force keeps the stored one.
func (s *Store) UpdateMetadata(path string, meta Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	if meta.PeakForce == "" {
		old, err := s.ReadMetadata(path)
		if err != nil {
			return err
		}
		meta.PeakForce, meta.PeakUnit = old.PeakForce, old.PeakUnit
	}

	var buf bytes.Buffer
	writeHeader(&buf, meta)
	buf.Write(stripHeader(data))

	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "failed to write %s", path)
}

// stripHeader returns data from the first line not starting with '#'.
func stripHeader(data []byte) []byte {
	for len(data) > 0 && data[0] == '#' {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return nil
		}
		data = data[i+1:]
	}
	return data
}

// Load returns the metadata and records of a stored test.
// Record values are in meta.PeakUnit.
func (s *Store) Load(path string) (Metadata, []Record, error) {
	meta, err := s.ReadMetadata(path)
	if err != nil {
		return Metadata{}, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, nil, errors.Wrapf(err, "failed to read %s", path)
	}
	records, err := ReadCSV(bytes.NewReader(stripHeader(data)))
	if err != nil {
		return Metadata{}, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return meta, records, nil
}

// List returns all stored tests, newest date folder and file first.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() {
			dates = append(dates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var tests []Metadata
	for _, date := range dates {
		day, err := s.byDate(date, true)
		if err != nil {
			return nil, err
		}
		tests = append(tests, day...)
	}
	return tests, nil
}

// ByDate returns the tests stored for date (YYYY-MM-DD) in file name order.
func (s *Store) ByDate(date string) ([]Metadata, error) {
	return s.byDate(date, false)
}

func (s *Store) byDate(date string, newestFirst bool) ([]Metadata, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, date, "*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "bad date pattern")
	}
	sort.Strings(files)
	if newestFirst {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	tests := make([]Metadata, 0, len(files))
	for _, file := range files {
		meta, err := s.ReadMetadata(file)
		if err != nil {
			continue
		}
		meta.DateFolder = date
		tests = append(tests, meta)
	}
	return tests, nil
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename makes name safe for use as a file name.
func SanitizeFilename(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, ". ")
	if r := []rune(safe); len(r) > 100 {
		safe = string(r[:100])
	}
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		return "test"
	}
	return safe
}
