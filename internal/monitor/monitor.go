package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/internal/session"
)

// QueueReporter reports the event loop backlog.
type QueueReporter interface {
	QueueLen() int
}

// ClientReporter reports connected renderers.
type ClientReporter interface {
	Clients() int
}

// LoadHistory lists recorded loads, newest first.
type LoadHistory interface {
	RecentLoads(limit int) ([]model.LoadRun, error)
}

// MetricsReporter reports points waiting to be written.
type MetricsReporter interface {
	Pending() int
}

// Dependencies holds all dependencies for the monitor service. Everything
// except Session is optional.
type Dependencies struct {
	Logger     *slog.Logger
	Session    *session.Context
	Queue      QueueReporter
	Clients    ClientReporter
	History    LoadHistory
	Metrics    MetricsReporter
	StatusFile string
	StartedAt  time.Time
}

// Status is one status report.
type Status struct {
	Time           time.Time        `json:"time"`
	UptimeSeconds  int64            `json:"uptimeSeconds"`
	QueueDepth     int              `json:"queueDepth"`
	Clients        int              `json:"clients"`
	MetricsPending int              `json:"metricsPending"`
	Session        session.Snapshot `json:"session"`
	RecentLoads    []model.LoadRun  `json:"recentLoads"`
}

// recentLoads is how many loads a report lists.
const recentLoads = 5

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	logger    *slog.Logger
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopped   chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &Service{
		deps:     deps,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status.
func (s *Service) GetStatus() Status {
	now := time.Now()
	st := Status{
		Time:          now.UTC(),
		UptimeSeconds: int64(now.Sub(s.deps.StartedAt).Seconds()),
		RecentLoads:   []model.LoadRun{},
	}
	if s.deps.Session != nil {
		st.Session = s.deps.Session.Get()
	}
	if s.deps.Queue != nil {
		st.QueueDepth = s.deps.Queue.QueueLen()
	}
	if s.deps.Clients != nil {
		st.Clients = s.deps.Clients.Clients()
	}
	if s.deps.Metrics != nil {
		st.MetricsPending = s.deps.Metrics.Pending()
	}
	if s.deps.History != nil {
		runs, err := s.deps.History.RecentLoads(recentLoads)
		if err != nil {
			s.logger.Warn("Failed to read load history", "error", err)
		} else if runs != nil {
			st.RecentLoads = runs
		}
	}
	return st
}

// WriteStatusFile replaces the status file with the current report.
func (s *Service) WriteStatusFile() error {
	if s.deps.StatusFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	tmp := s.deps.StatusFile + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusFile)
}

// Start starts the status monitor goroutine. Each interval the report is
// written to the status file and logged at DEBUG.
func (s *Service) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	stop, stopped := s.stopChan, s.stopped
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(stopped)
		}()

		s.logger.Debug("Starting status monitor", "interval", interval, "statusFile", s.deps.StatusFile)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.WriteStatusFile(); err != nil {
					s.logger.Error("Error writing status file", "error", err)
				}
				st := s.GetStatus()
				s.logger.Debug("Status",
					"queueDepth", st.QueueDepth,
					"clients", st.Clients,
					"metricsPending", st.MetricsPending,
					"generation", st.Session.Generation,
					"phase", st.Session.Player.Phase.String(),
				)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	stopped := s.stopped
	s.mu.Unlock()
	<-stopped
}
