// Package api serves the conversion history over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/db"
)

// Store is the read side of the history database. *db.DB implements it.
type Store interface {
	ListBatches(limit, offset int) ([]db.Batch, int64, error)
	GetBatch(id string) (*db.Batch, error)
	ListJobs(status string, limit, offset int) ([]db.JobRecord, int64, error)
	GetStats() (*db.Stats, error)
}

// Watch is the running watcher, when the server is started by watch mode.
type Watch interface {
	ScanAll()
	QueueLen() int
}

type Server struct {
	Router *gin.Engine
	store  Store
	watch  Watch
	log    *zap.SugaredLogger
}

// NewServer builds the router. watch may be nil.
func NewServer(store Store, watch Watch, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery(), requestLogger(log))

	s := &Server{Router: g, store: store, watch: watch, log: log}
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := g.Group("/api")
	api.GET("/batches", s.listBatches)
	api.GET("/batches/:id", s.getBatch)
	api.GET("/jobs", s.listJobs)
	api.GET("/stats", s.getStats)
	api.GET("/converters", s.listConverters)
	api.POST("/scan-now", s.scanNow)
	return s
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infof("HTTP server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) listBatches(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)
	rows, total, err := s.store.ListBatches(limit, offset)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total})
}

func (s *Server) getBatch(c *gin.Context) {
	b, err := s.store.GetBatch(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) listJobs(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != db.StatusSuccess && status != db.StatusFailed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be success or failed"})
		return
	}
	limit := parseIntDefault(c.Query("limit"), 100)
	offset := parseIntDefault(c.Query("offset"), 0)
	rows, total, err := s.store.ListJobs(status, limit, offset)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		s.internalError(c, err)
		return
	}
	resp := gin.H{
		"batches":       stats.Batches,
		"total_jobs":    stats.TotalJobs,
		"success_count": stats.SuccessCount,
		"failed_count":  stats.FailedCount,
		"deleted_count": stats.DeletedCount,
		"watcher_state": "stopped",
	}
	if s.watch != nil {
		resp["watcher_state"] = "running"
		resp["queue_len"] = s.watch.QueueLen()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listConverters(c *gin.Context) {
	c.JSON(http.StatusOK, converter.ListInfo())
}

func (s *Server) scanNow(c *gin.Context) {
	if s.watch == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no watcher is running"})
		return
	}
	go s.watch.ScanAll()
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
