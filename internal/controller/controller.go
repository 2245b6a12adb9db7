// Package controller owns the engine state: the loaded records, the marker
// index result, the timeline, the player and the view projection. Every
// method must run on the event loop; other goroutines go through the
// commands registered by RegisterHandlers.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phototrip/phototrip/internal/index"
	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/internal/normalize"
	"github.com/phototrip/phototrip/internal/player"
	"github.com/phototrip/phototrip/internal/session"
	"github.com/phototrip/phototrip/internal/timeline"
	"github.com/phototrip/phototrip/internal/view"
	"github.com/phototrip/phototrip/pkg/core"
	"github.com/phototrip/phototrip/pkg/streaming"
)

// ErrNoSource is returned by Load when neither the call nor the options name
// a manifest.
var ErrNoSource = errors.New("no manifest source")

// ManifestLoader fetches and decodes a manifest.
type ManifestLoader interface {
	Load(ctx context.Context, source string) ([]core.PhotoDescriptor, error)
}

// Normalizer resolves descriptors into records, settling every photo before
// returning.
type Normalizer interface {
	NormalizeAll(ctx context.Context, descs []core.PhotoDescriptor) ([]core.PhotoRecord, normalize.Stats)
}

// Renderer is everything the browser draws.
type Renderer interface {
	view.Renderer
	player.Renderer
}

// Loop is the event loop the controller lives on.
type Loop interface {
	player.Scheduler
	Post(fn func()) error
}

// History records finished loads. storage.Backend satisfies it.
type History interface {
	RecordLoad(run *model.LoadRun) error
}

// Metrics receives engine measurements.
type Metrics interface {
	RecordLoad(run model.LoadRun)
	RecordRebuild(filter string, visible, steps int)
	RecordStep(index int, step core.TripStep)
}

// Notifier pushes status messages that are not render commands.
type Notifier interface {
	Broadcast(typ string, payload any)
}

// Dependencies holds the collaborators of a Controller. History, Metrics,
// Notifier, Audio and Logger are optional.
type Dependencies struct {
	Loop       Loop
	Loader     ManifestLoader
	Normalizer Normalizer
	Renderer   Renderer
	Audio      player.Audio
	Session    *session.Context
	History    History
	Metrics    Metrics
	Notifier   Notifier
	Logger     *slog.Logger
}

// Options are the startup settings.
type Options struct {
	Source         string
	Player         player.Options
	Clustering     bool
	GalleryVisible bool
}

// Controller is the single owner of engine state.
type Controller struct {
	deps   Dependencies
	logger *slog.Logger
	source string

	player *player.Player
	view   *view.Projector

	records []core.PhotoRecord
	filter  string
	result  index.Result
	steps   []core.TripStep

	// resetFilter is set by Load and cleared by SetFilter, so a year picked
	// while a load is in flight survives its result.
	resetFilter bool

	generation uint64
	cancelLoad context.CancelFunc
}

// New creates a Controller with nothing loaded.
func New(deps Dependencies, opts Options) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}

	c := &Controller{
		deps:   deps,
		logger: logger,
		source: opts.Source,
		view:   view.New(deps.Renderer, opts.Clustering, opts.GalleryVisible),
		filter: index.AllYears,
	}
	c.player = player.New(player.Dependencies{
		Renderer:  deps.Renderer,
		Audio:     deps.Audio,
		Scheduler: deps.Loop,
		Logger:    logger.With("component", "player"),
		OnChange:  c.playerChanged,
		OnStep:    c.stepped,
		OnFinish: func() {
			c.logger.Info("Trip finished", "steps", len(c.steps))
		},
	}, opts.Player)

	c.deps.Session.Update(func(s *session.Snapshot) {
		s.Source = opts.Source
		s.Player = c.player.State()
		s.View = c.view.State()
	})
	return c
}

// Load starts loading source (or the configured source when empty) and
// returns the load generation. A newer Load supersedes an unfinished one:
// its context is cancelled and its result is dropped.
func (c *Controller) Load(source string) (uint64, error) {
	if source == "" {
		source = c.source
	}
	if source == "" {
		return 0, ErrNoSource
	}
	c.source = source

	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.generation++
	c.resetFilter = true
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelLoad = cancel

	run := model.LoadRun{
		ID:         ulid.Make().String(),
		StartedAt:  time.Now().UTC(),
		Source:     source,
		Generation: gen,
	}
	c.deps.Session.Update(func(s *session.Snapshot) {
		s.Generation = gen
		s.Source = source
		s.Loading = true
		s.LoadID = run.ID
	})
	c.logger.Info("Loading manifest", "source", source, "generation", gen, "loadId", run.ID)

	go func() {
		var (
			records []core.PhotoRecord
			stats   normalize.Stats
		)
		descs, err := c.deps.Loader.Load(ctx, source)
		if err == nil {
			records, stats = c.deps.Normalizer.NormalizeAll(ctx, descs)
		}
		if perr := c.deps.Loop.Post(func() {
			c.applyLoad(gen, run, records, stats, err)
		}); perr != nil {
			c.logger.Debug("Dropping load result", "generation", gen, "error", perr)
		}
	}()

	return gen, nil
}

func (c *Controller) applyLoad(gen uint64, run model.LoadRun, records []core.PhotoRecord, stats normalize.Stats, err error) {
	if gen != c.generation {
		c.logger.Debug("Discarding superseded load", "generation", gen, "current", c.generation)
		return
	}
	c.cancelLoad = nil
	resetFilter := c.resetFilter
	c.resetFilter = false

	run.DurationMs = time.Since(run.StartedAt).Milliseconds()
	run.Total = stats.Total
	run.Located = stats.Located
	run.Unknown = stats.Unknown
	run.Timestamped = stats.Timestamped
	run.Failed = stats.Failed

	if err != nil {
		run.Error = err.Error()
		c.logger.Error("Manifest load failed", "source", run.Source, "generation", gen, "error", err)
		c.deps.Session.Update(func(s *session.Snapshot) {
			s.Loading = false
			s.LastError = err.Error()
		})
		c.notify(streaming.TypeError, streaming.ErrorPayload{Command: "load", Message: err.Error()})
		c.recordLoad(run)
		return
	}

	c.records = records
	if resetFilter {
		c.filter = index.AllYears
	}
	c.rebuild()

	run.Steps = len(c.steps)
	c.deps.Session.Update(func(s *session.Snapshot) {
		s.Loading = false
		s.LoadedAt = time.Now().UTC()
		s.LastError = ""
		s.Stats = stats
		s.Records = len(records)
	})
	c.logger.Info("Manifest loaded",
		"source", run.Source,
		"generation", gen,
		"photos", stats.Total,
		"located", stats.Located,
		"unknown", stats.Unknown,
		"failed", stats.Failed,
		"steps", run.Steps,
		"durationMs", run.DurationMs,
	)
	c.recordLoad(run)
}

func (c *Controller) recordLoad(run model.LoadRun) {
	if c.deps.History != nil {
		if err := c.deps.History.RecordLoad(&run); err != nil {
			c.logger.Warn("Failed to record load", "loadId", run.ID, "error", err)
		}
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordLoad(run)
	}
}

// rebuild resets everything downstream of the records and derives it again.
func (c *Controller) rebuild() {
	c.player.Reset()
	c.view.Clear()

	c.result = index.Rebuild(c.records, c.filter)
	c.steps = timeline.Build(c.result.Visible)
	c.player.Load(c.steps)
	c.view.Project(c.result)

	c.deps.Session.Update(func(s *session.Snapshot) {
		s.Filter = c.filter
		s.Years = c.result.Years
		s.Visible = len(c.result.Visible)
		s.Steps = len(c.steps)
		s.View = c.view.State()
	})
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordRebuild(c.filter, len(c.result.Visible), len(c.steps))
	}
	c.logger.Debug("Markers rebuilt", "filter", c.filter, "visible", len(c.result.Visible), "steps", len(c.steps))
}

// SetFilter shows only photos of year, or every photo for index.AllYears.
func (c *Controller) SetFilter(year string) {
	c.filter = year
	c.resetFilter = false
	c.rebuild()
}

// SetClustering switches the marker layer. A change rebuilds the markers
// and resets the trip.
func (c *Controller) SetClustering(on bool) {
	if c.view.SetClustering(on) {
		c.rebuild()
	}
}

// SetGalleryVisible shows or hides the gallery.
func (c *Controller) SetGalleryVisible(visible bool) {
	c.view.SetGalleryVisible(visible)
	c.deps.Session.Update(func(s *session.Snapshot) { s.View = c.view.State() })
}

func (c *Controller) Play()   { c.player.Play() }
func (c *Controller) Pause()  { c.player.Pause() }
func (c *Controller) Resume() { c.player.Resume() }
func (c *Controller) Reset()  { c.player.Reset() }

// SetShowPhotos toggles step popups from the next step on.
func (c *Controller) SetShowPhotos(show bool) {
	c.player.SetShowPhotos(show)
}

// SetStepDuration changes the per-step duration from the next step on.
func (c *Controller) SetStepDuration(d time.Duration) error {
	return c.player.SetStepDuration(d)
}

// Steps returns the current timeline.
func (c *Controller) Steps() []core.TripStep {
	return c.steps
}

// Result returns the last marker index result.
func (c *Controller) Result() index.Result {
	return c.result
}

// Close cancels an unfinished load.
func (c *Controller) Close() {
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.generation++
}

func (c *Controller) playerChanged(st player.State) {
	c.deps.Session.SetPlayer(st)
	c.notify(streaming.TypeState, st)
}

func (c *Controller) stepped(i int, step core.TripStep) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordStep(i, step)
	}
}

func (c *Controller) notify(typ string, payload any) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Broadcast(typ, payload)
	}
}
