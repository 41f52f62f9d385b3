package companion

import (
	"context"
	"io/fs"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SaveRequest is the body of POST /session and PUT /tests/:date/:file.
type SaveRequest struct {
	TestName   string `json:"test_name"`
	Technician string `json:"technician"`
	Notes      string `json:"notes"`
	DateTime   string `json:"datetime"`
}

// StoredTest is returned by GET /tests/:date/:file.
type StoredTest struct {
	Metadata Metadata `json:"metadata"`
	Records  []Record `json:"records"`
}

// Status is returned by GET /status.
type Status struct {
	Connected bool    `json:"connected"`
	Paused    bool    `json:"paused"`
	Records   int     `json:"records"`
	Peak      float64 `json:"peak"`
}

// Server exposes the recorder over HTTP.
type Server struct {
	device     Commander
	session    *Session
	store      *Store
	technician string
	router     *gin.Engine
}

// NewServer creates the HTTP API. technician is the default for saved tests.
func NewServer(device Commander, session *Session, store *Store, technician string) *Server {
	s := &Server{
		device:     device,
		session:    session,
		store:      store,
		technician: technician,
	}
	s.router = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", s.getStatus)
	router.GET("/reading", s.getReading)
	router.GET("/session", s.getSession)
	router.DELETE("/session", s.clearSession)
	router.POST("/session", s.saveSession)
	router.POST("/commands/:name", s.postCommand)
	router.GET("/tests", s.getTests)
	router.GET("/tests/stats", s.getStats)
	router.GET("/tests/:date/:file", s.getTest)
	router.PUT("/tests/:date/:file", s.updateTest)

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	return nil
}

func (s *Server) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, Status{
		Connected: s.device.IsConnected(),
		Paused:    s.device.Paused(),
		Records:   s.session.Len(),
		Peak:      s.session.Peak(),
	})
}

func (s *Server) getReading(c *gin.Context) {
	r, ok := s.session.Last()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.IndentedJSON(http.StatusOK, r)
}

func (s *Server) getSession(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.session.Records())
}

func (s *Server) clearSession(c *gin.Context) {
	s.session.Clear()
	logrus.Info("session cleared")
	c.IndentedJSON(http.StatusOK, "ok")
}

func (s *Server) saveSession(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	records := s.session.Records()
	if len(records) == 0 {
		c.IndentedJSON(http.StatusConflict, ErrNoData.Error())
		_ = c.AbortWithError(http.StatusConflict, ErrNoData)
		return
	}

	at := time.Now()
	if req.DateTime != "" {
		t, err := time.ParseInLocation(DateTimeLayout, req.DateTime, time.Local)
		if err != nil {
			err = errors.Wrapf(err, "datetime must be %q", DateTimeLayout)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
		at = t
	}
	if req.Technician == "" {
		req.Technician = s.technician
	}

	path, err := s.store.NewTestPath(req.TestName, at)
	if err == nil {
		err = s.store.Save(path, Metadata{
			TestName:   req.TestName,
			DateTime:   at.Format(DateTimeLayout),
			Technician: req.Technician,
			Notes:      req.Notes,
		}, records)
	}
	if err != nil {
		logrus.Errorf("save test failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	meta, err := s.store.ReadMetadata(path)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.WithField("path", path).Info("test saved")
	c.IndentedJSON(http.StatusCreated, meta)
}

func (s *Server) postCommand(c *gin.Context) {
	var err error
	switch name := c.Param("name"); name {
	case "pause":
		err = s.device.Pause()
	case "resume":
		err = s.device.Resume()
	case "new-test":
		if err = s.device.StartNewTest(c.Request.Context()); err == nil {
			s.session.Clear()
		}
	default:
		err = errors.Errorf("unknown command %q, expected pause, resume or new-test", name)
		c.IndentedJSON(http.StatusNotFound, err.Error())
		_ = c.AbortWithError(http.StatusNotFound, err)
		return
	}

	if err != nil {
		c.IndentedJSON(http.StatusServiceUnavailable, err.Error())
		_ = c.AbortWithError(http.StatusServiceUnavailable, err)
		return
	}
	c.IndentedJSON(http.StatusOK, Status{
		Connected: s.device.IsConnected(),
		Paused:    s.device.Paused(),
		Records:   s.session.Len(),
		Peak:      s.session.Peak(),
	})
}

func (s *Server) getTests(c *gin.Context) {
	tests, err := s.tests(c.Query("date"))
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if tests == nil {
		tests = []Metadata{}
	}
	c.IndentedJSON(http.StatusOK, tests)
}

func (s *Server) getStats(c *gin.Context) {
	tests, err := s.tests(c.Query("date"))
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	stats := NewStatistics(tests, s.store.Unit())
	c.IndentedJSON(http.StatusOK, gin.H{
		"summary":    stats.Summary(),
		"deviations": stats.Deviations(),
	})
}

func (s *Server) getTest(c *gin.Context) {
	path, ok := s.testPath(c)
	if !ok {
		return
	}
	meta, records, err := s.store.Load(path)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	c.IndentedJSON(http.StatusOK, StoredTest{Metadata: meta, Records: records})
}

func (s *Server) updateTest(c *gin.Context) {
	path, ok := s.testPath(c)
	if !ok {
		return
	}

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	meta, err := s.store.ReadMetadata(path)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if err := ApplyEdit(&meta, req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateMetadata(path, meta); err != nil {
		abortStoreError(c, err)
		return
	}

	meta, err = s.store.ReadMetadata(path)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	meta.DateFolder = c.Param("date")

	logrus.WithField("path", path).Info("test metadata updated")
	c.IndentedJSON(http.StatusOK, meta)
}

// ApplyEdit replaces the editable fields of meta. Empty name, technician and
// datetime keep the stored values; notes are always replaced.
func ApplyEdit(meta *Metadata, req SaveRequest) error {
	if req.DateTime != "" {
		if _, err := time.ParseInLocation(DateTimeLayout, req.DateTime, time.Local); err != nil {
			return errors.Wrapf(err, "datetime must be %q", DateTimeLayout)
		}
		meta.DateTime = req.DateTime
	}
	if req.TestName != "" {
		meta.TestName = req.TestName
	}
	if req.Technician != "" {
		meta.Technician = req.Technician
	}
	meta.Notes = req.Notes
	return nil
}

func (s *Server) testPath(c *gin.Context) (string, bool) {
	path, err := s.store.Path(c.Param("date"), c.Param("file"))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return "", false
	}
	return path, true
}

func abortStoreError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, fs.ErrNotExist) {
		code = http.StatusNotFound
	}
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func (s *Server) tests(date string) ([]Metadata, error) {
	if date != "" {
		return s.store.ByDate(date)
	}
	return s.store.List()
}

func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := int(math.Ceil(float64(time.Since(start).Nanoseconds()) / 1e6))
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency,
			"method":     c.Request.Method,
			"path":       path,
		})

		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}
		entry.Debugf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
	}
}
