package companion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is a Commander without hardware.
type fakeDevice struct {
	paused   bool
	newTests int
	err      error
}

func (f *fakeDevice) IsConnected() bool { return true }
func (f *fakeDevice) Paused() bool      { return f.paused }

func (f *fakeDevice) Pause() error {
	if f.err != nil {
		return f.err
	}
	f.paused = true
	return nil
}

func (f *fakeDevice) Resume() error {
	if f.err != nil {
		return f.err
	}
	f.paused = false
	return nil
}

func (f *fakeDevice) StartNewTest(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.newTests++
	f.paused = false
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeDevice, *Session, *Store) {
	t.Helper()
	dev := &fakeDevice{paused: true}
	session := NewSession(kN)
	store := NewStore(t.TempDir(), kN)
	return NewServer(dev, session, store, "Default Tech"), dev, session, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Status(t *testing.T) {
	s, _, session, _ := newTestServer(t)
	session.Add(Record{1, 2, 3})

	w := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, Status{Connected: true, Paused: true, Records: 1, Peak: 3}, st)
}

func TestServer_Reading(t *testing.T) {
	s, _, session, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/reading", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	session.Add(Record{0.5, 1.5, 1.5})
	w = do(t, s, http.MethodGet, "/reading", "")
	require.Equal(t, http.StatusOK, w.Code)

	var r Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, Record{0.5, 1.5, 1.5}, r)
}

func TestServer_Commands(t *testing.T) {
	s, dev, session, _ := newTestServer(t)
	session.Add(Record{1, 1, 1})

	w := do(t, s, http.MethodPost, "/commands/resume", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, dev.paused)

	w = do(t, s, http.MethodPost, "/commands/pause", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, dev.paused)

	w = do(t, s, http.MethodPost, "/commands/new-test", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, dev.newTests)
	assert.Zero(t, session.Len(), "new test clears the session")

	w = do(t, s, http.MethodPost, "/commands/explode", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	dev.err = assert.AnError
	w = do(t, s, http.MethodPost, "/commands/pause", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_SaveSession(t *testing.T) {
	s, _, session, store := newTestServer(t)

	w := do(t, s, http.MethodPost, "/session", `{"test_name":"Rope"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	session.Add(Record{0, 1, 1})
	session.Add(Record{1, 7.25, 7.25})

	w = do(t, s, http.MethodPost, "/session", `{"test_name":"Rope","datetime":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/session",
		`{"test_name":"Rope 1","notes":"first","datetime":"2024-03-05 14:07:09"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var meta Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "Rope 1", meta.TestName)
	assert.Equal(t, "Default Tech", meta.Technician)
	assert.Equal(t, "7.250", meta.PeakForce)
	assert.True(t, strings.HasSuffix(meta.Path, "Rope_1_140709.csv"))

	tests, err := store.ByDate("2024-03-05")
	require.NoError(t, err)
	assert.Len(t, tests, 1)
}

func TestServer_SessionAndTests(t *testing.T) {
	s, _, session, _ := newTestServer(t)
	session.Add(Record{0, 4, 4})
	session.Add(Record{1, 2, 4})

	w := do(t, s, http.MethodGet, "/session", "")
	var records []Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)

	for _, body := range []string{
		`{"test_name":"a","datetime":"2024-03-05 10:00:00"}`,
		`{"test_name":"b","datetime":"2024-03-06 10:00:00"}`,
	} {
		w = do(t, s, http.MethodPost, "/session", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = do(t, s, http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, session.Len())

	w = do(t, s, http.MethodGet, "/tests", "")
	var tests []Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tests))
	require.Len(t, tests, 2)
	assert.Equal(t, "b", tests[0].TestName)

	w = do(t, s, http.MethodGet, "/tests?date=2024-03-05", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tests))
	require.Len(t, tests, 1)
	assert.Equal(t, "a", tests[0].TestName)

	w = do(t, s, http.MethodGet, "/tests/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Summary    Summary     `json:"summary"`
		Deviations []Deviation `json:"deviations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Summary.Count)
	assert.Equal(t, "kN", stats.Summary.Unit)
	assert.InDelta(t, 4.0, stats.Summary.Mean, 1e-9)
	assert.Len(t, stats.Deviations, 2)
}

func TestServer_StoredTest(t *testing.T) {
	s, _, session, _ := newTestServer(t)
	session.Add(Record{0, 1, 1})
	session.Add(Record{0.5, 6.5, 6.5})

	w := do(t, s, http.MethodPost, "/session",
		`{"test_name":"Rope","technician":"Sam","notes":"dry","datetime":"2024-03-05 14:07:09"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	const url = "/tests/2024-03-05/Rope_140709.csv"

	w = do(t, s, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stored StoredTest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, "Rope", stored.Metadata.TestName)
	assert.Equal(t, "kN", stored.Metadata.PeakUnit)
	assert.Equal(t, []Record{{0, 1, 1}, {0.5, 6.5, 6.5}}, stored.Records)

	w = do(t, s, http.MethodPut, url, `{"test_name":"Rope 2","notes":"wet\nfrayed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var meta Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "Rope 2", meta.TestName)
	assert.Equal(t, "Sam", meta.Technician)
	assert.Equal(t, "2024-03-05 14:07:09", meta.DateTime)
	assert.Equal(t, "wet\nfrayed", meta.Notes)
	assert.Equal(t, "6.500", meta.PeakForce)

	w = do(t, s, http.MethodGet, url, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, "Rope 2", stored.Metadata.TestName)
	assert.Len(t, stored.Records, 2)

	w = do(t, s, http.MethodPut, url, `{"datetime":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/tests/2024-03-05/missing.csv", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPut, "/tests/2024-03-05/missing.csv", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/tests/latest/Rope_140709.csv", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
