// Package api exposes the UI operations and the engine state over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/phototrip/phototrip/internal/controller"
	"github.com/phototrip/phototrip/internal/dispatcher"
	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/internal/monitor"
	"github.com/phototrip/phototrip/internal/session"
)

// APIKeyHeader carries the key for mutating routes when one is configured.
const APIKeyHeader = "X-Api-Key"

// Dispatcher runs UI commands on the event loop.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// StatusReporter produces status reports.
type StatusReporter interface {
	GetStatus() monitor.Status
}

// Dependencies holds the collaborators of the router. Monitor, History, Hub
// and the photo settings are optional.
type Dependencies struct {
	Dispatcher  Dispatcher
	Session     *session.Context
	Monitor     StatusReporter
	History     monitor.LoadHistory
	Hub         http.Handler
	PhotosRoot  string
	PhotoPrefix string
	CorsOrigins []string
	APIKey      string
	Logger      *slog.Logger
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// CommandResponse wraps a command result.
type CommandResponse struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type server struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewRouter builds the gin engine.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{deps: deps, logger: logger}

	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, err any) {
			logger.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
		requestLogger(logger),
		cors.New(corsConfig(deps.CorsOrigins)),
	)

	r.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Hub != nil {
		r.GET("/ws", gin.WrapH(deps.Hub))
	}
	if deps.PhotosRoot != "" {
		prefix := strings.TrimRight(deps.PhotoPrefix, "/")
		if prefix == "" {
			prefix = "/photos"
		}
		r.Static(prefix, deps.PhotosRoot)
	}

	api := r.Group("/api", gzip.Gzip(gzip.DefaultCompression))
	api.GET("/state", s.getState)
	api.GET("/status", s.getStatus)
	api.GET("/loads", s.getLoads)

	cmd := api.Group("", s.authorize)
	cmd.POST("/command", s.postCommand)
	cmd.POST("/reload", s.postReload)
	cmd.POST("/filter", s.postFilter)
	cmd.POST("/clustering", s.postToggle(controller.CmdClustering, "enabled"))
	cmd.POST("/gallery", s.postToggle(controller.CmdGallery, "visible"))

	trip := cmd.Group("/trip")
	trip.POST("/play", s.postPlain(controller.CmdPlay))
	trip.POST("/pause", s.postPlain(controller.CmdPause))
	trip.POST("/resume", s.postPlain(controller.CmdResume))
	trip.POST("/reset", s.postPlain(controller.CmdReset))
	trip.POST("/show_photos", s.postToggle(controller.CmdShowPhotos, "enabled"))
	trip.POST("/step_duration", s.postStepDuration)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Content-Length", "Content-Type", "Origin", APIKeyHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.Method == http.MethodOptions {
			return
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"durationMs", time.Since(start).Milliseconds(),
		)
	}
}

func (s *server) authorize(c *gin.Context) {
	if s.deps.APIKey == "" || c.GetHeader(APIKeyHeader) == s.deps.APIKey {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
}

func (s *server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Session.Get())
}

func (s *server) getStatus(c *gin.Context) {
	if s.deps.Monitor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "status monitor disabled"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Monitor.GetStatus())
}

func (s *server) getLoads(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusOK, []model.LoadRun{})
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	runs, err := s.deps.History.RecentLoads(limit)
	if err != nil {
		s.logger.Error("Failed to list loads", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.LoadRun{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *server) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Command == "" {
		c.JSON(http.StatusBadRequest, CommandResponse{Error: "body must name a command"})
		return
	}
	s.dispatch(c, req.Command, req.Args...)
}

func (s *server) postReload(c *gin.Context) {
	var body struct {
		Source string `json:"source"`
	}
	if !s.bindOptional(c, &body) {
		return
	}
	var args []string
	if body.Source != "" {
		args = append(args, body.Source)
	}
	s.dispatch(c, controller.CmdLoad, args...)
}

func (s *server) postFilter(c *gin.Context) {
	var body struct {
		Year string `json:"year"`
	}
	if !s.bindOptional(c, &body) {
		return
	}
	s.dispatch(c, controller.CmdFilter, body.Year)
}

func (s *server) postToggle(command, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]bool
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, CommandResponse{Command: command, Error: err.Error()})
			return
		}
		v, ok := body[field]
		if !ok {
			c.JSON(http.StatusBadRequest, CommandResponse{Command: command, Error: "missing field " + field})
			return
		}
		s.dispatch(c, command, strconv.FormatBool(v))
	}
}

func (s *server) postPlain(command string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.dispatch(c, command)
	}
}

func (s *server) postStepDuration(c *gin.Context) {
	var body struct {
		Ms *int64 `json:"ms"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Ms == nil {
		c.JSON(http.StatusBadRequest, CommandResponse{Command: controller.CmdStepDuration, Error: "body must carry ms"})
		return
	}
	s.dispatch(c, controller.CmdStepDuration, strconv.FormatInt(*body.Ms, 10))
}

// bindOptional decodes a JSON body when one was sent.
func (s *server) bindOptional(c *gin.Context, out any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, CommandResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *server) dispatch(c *gin.Context, command string, args ...string) {
	result, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	if err != nil {
		c.JSON(statusFor(err), CommandResponse{Command: command, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, CommandResponse{Command: command, Result: result})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, dispatcher.ErrStopped), errors.Is(err, dispatcher.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
