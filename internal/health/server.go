package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"metalbot/internal/service"
)

// Server exposes liveness and status over HTTP.
type Server struct {
	addr   string
	status *service.StatusReporter
	engine *gin.Engine
	logger zerolog.Logger
}

// New builds the router; status may be nil, in which case /status returns 503.
func New(addr string, status *service.StatusReporter, logger zerolog.Logger) *Server {
	s := &Server{
		addr:   addr,
		status: status,
		logger: logger.With().Str("component", "health").Logger(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.GET("/", s.home)
	r.GET("/health", s.home)
	r.GET("/status", s.statusHandler)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "not found"})
	})
	s.engine = r
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("health server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown health server: %w", err)
	}
	return ctx.Err()
}

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Bot server is running"})
}

type cacheEntry struct {
	Metal      string    `json:"metal"`
	City       string    `json:"city"`
	FetchedAt  time.Time `json:"fetched_at"`
	AgeSeconds int64     `json:"age_seconds"`
	Fresh      bool      `json:"fresh"`
	Price      string    `json:"price"`
}

func (s *Server) statusHandler(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "status unavailable"})
		return
	}
	st, err := s.status.Status(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to collect status")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "status unavailable"})
		return
	}

	entries := make([]cacheEntry, 0, len(st.Cache))
	for _, item := range st.Cache {
		entries = append(entries, cacheEntry{
			Metal:      item.Metal,
			City:       item.City,
			FetchedAt:  item.FetchedAt,
			AgeSeconds: int64(s.status.CacheAge(item) / time.Second),
			Fresh:      item.Fresh,
			Price:      item.Price.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"started_at":     st.StartedAt.UTC(),
		"uptime_seconds": int64(st.Uptime / time.Second),
		"cache":          entries,
		"subscriptions":  st.Subscriptions,
		"alerts":         st.Alerts,
	})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("request served")
	}
}
