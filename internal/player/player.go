// Package player drives the animated replay of a trip timeline.
//
// A Player is not safe for concurrent use. Every call, including the
// callbacks it hands to its Scheduler, must run on one goroutine.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phototrip/phototrip/internal/geo"
	"github.com/phototrip/phototrip/internal/timeline"
	"github.com/phototrip/phototrip/internal/util"
	"github.com/phototrip/phototrip/pkg/core"
)

// ErrInvalidDuration is returned for a negative step duration.
var ErrInvalidDuration = errors.New("step duration must not be negative")

// Phase is the state of the replay.
type Phase int

// Phases of a replay. Finished holds until Reset.
const (
	Idle Phase = iota
	Playing
	Paused
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Popup is the photo shown at a trip step.
type Popup struct {
	FileRef string `json:"fileRef"`
	Caption string `json:"caption"`
	Trip    string `json:"trip,omitempty"`
	Taken   string `json:"taken"`
}

// Renderer receives the trip's view commands.
type Renderer interface {
	AddTripMarker(c core.Coordinate)
	MoveTripMarker(c core.Coordinate)
	RemoveTripMarker()
	AddRoute(path []core.Coordinate)
	RemoveRoute()
	PanTo(c core.Coordinate)
	OpenPopup(p Popup)
	ClosePopup()
	SetTimelineLabel(text string)
	SetProgress(fraction float64)
}

// Audio is the trip-start cue.
type Audio interface {
	Play() error
	Pause()
	Rewind()
	Playing() bool
}

// Scheduler provides the two suspension points of a replay: a one-shot timer
// between steps and a per-frame callback while the marker moves. Each returns
// its own cancel function.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
	Frame(fn func(now time.Time)) (cancel func())
}

// Options are the user-adjustable playback settings.
type Options struct {
	StepDuration  time.Duration
	ShowPhotos    bool
	ResetOnFinish bool
}

// Dependencies holds the collaborators of a Player. Audio, Logger and the
// hooks are optional.
type Dependencies struct {
	Renderer  Renderer
	Audio     Audio
	Scheduler Scheduler
	Logger    *slog.Logger

	OnChange func(State)
	OnStep   func(index int, step core.TripStep)
	OnFinish func()
}

// State is a snapshot of the replay.
type State struct {
	Phase          Phase            `json:"phase"`
	Cursor         int              `json:"cursor"`
	Length         int              `json:"length"`
	Label          string           `json:"label"`
	Progress       float64          `json:"progress"`
	Marker         *core.Coordinate `json:"marker,omitempty"`
	StepDurationMs int64            `json:"stepDurationMs"`
	ShowPhotos     bool             `json:"showPhotos"`
}

// Player is the trip replay state machine.
type Player struct {
	deps   Dependencies
	logger *slog.Logger

	stepDuration  time.Duration
	showPhotos    bool
	resetOnFinish bool

	steps  []core.TripStep
	phase  Phase
	cursor int

	marker     *core.Coordinate
	routeDrawn bool
	label      string
	progress   float64

	// token invalidates callbacks scheduled before the last cancellation.
	token       uint64
	cancelTimer func()
	cancelFrame func()

	resumeAudio bool
}

// New creates an Idle player with an empty timeline.
func New(deps Dependencies, opts Options) *Player {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StepDuration < 0 {
		opts.StepDuration = 0
	}
	return &Player{
		deps:          deps,
		logger:        logger,
		stepDuration:  opts.StepDuration,
		showPhotos:    opts.ShowPhotos,
		resetOnFinish: opts.ResetOnFinish,
	}
}

// Load resets the player and replaces its timeline.
func (p *Player) Load(steps []core.TripStep) {
	p.Reset()
	p.steps = steps
	p.notify()
}

// Play starts a run from Idle, or resumes from Paused. It does nothing while
// Playing or Finished.
func (p *Player) Play() {
	switch p.phase {
	case Paused:
		p.Resume()
		return
	case Playing, Finished:
		return
	}

	p.phase = Playing
	p.logger.Debug("Trip started", "steps", len(p.steps))
	if len(p.steps) > 1 {
		p.deps.Renderer.AddRoute(timeline.Path(p.steps))
		p.routeDrawn = true
	}
	if len(p.steps) > 0 {
		p.playCue()
	}
	p.notify()
	p.advance()
}

// Resume continues a paused run from its cursor. The start cue and the route
// are not repeated.
func (p *Player) Resume() {
	if p.phase != Paused {
		return
	}
	p.phase = Playing
	p.logger.Debug("Trip resumed", "cursor", p.cursor)
	if p.resumeAudio && p.deps.Audio != nil {
		if err := p.deps.Audio.Play(); err != nil {
			p.logger.Warn("Trip audio playback failed", "error", err)
		}
	}
	p.resumeAudio = false
	p.notify()
	p.advance()
}

// Pause stops a playing run. The marker stays where it was last drawn.
// Outside Playing it does nothing.
func (p *Player) Pause() {
	if p.phase != Playing {
		return
	}
	p.cancelPending()
	p.phase = Paused
	if p.deps.Audio != nil {
		p.resumeAudio = p.deps.Audio.Playing()
		p.deps.Audio.Pause()
	}
	p.logger.Debug("Trip paused", "cursor", p.cursor)
	p.notify()
}

// Reset returns to Idle from any phase and removes every trip artifact from
// the view.
func (p *Player) Reset() {
	p.cancelPending()

	r := p.deps.Renderer
	if p.marker != nil {
		r.ClosePopup()
		r.RemoveTripMarker()
		p.marker = nil
	}
	if p.routeDrawn {
		r.RemoveRoute()
		p.routeDrawn = false
	}
	p.label = ""
	r.SetTimelineLabel("")
	p.progress = 0
	r.SetProgress(0)

	if p.deps.Audio != nil {
		p.deps.Audio.Pause()
		p.deps.Audio.Rewind()
	}
	p.resumeAudio = false

	p.cursor = 0
	p.phase = Idle
	p.notify()
}

// SetStepDuration changes the per-step duration from the next step on.
func (p *Player) SetStepDuration(d time.Duration) error {
	if d < 0 {
		return ErrInvalidDuration
	}
	p.stepDuration = d
	p.notify()
	return nil
}

// SetShowPhotos toggles step popups from the next step on.
func (p *Player) SetShowPhotos(show bool) {
	p.showPhotos = show
	p.notify()
}

// State returns a snapshot.
func (p *Player) State() State {
	s := State{
		Phase:          p.phase,
		Cursor:         p.cursor,
		Length:         len(p.steps),
		Label:          p.label,
		Progress:       p.progress,
		StepDurationMs: p.stepDuration.Milliseconds(),
		ShowPhotos:     p.showPhotos,
	}
	if p.marker != nil {
		m := *p.marker
		s.Marker = &m
	}
	return s
}

// advance renders the step at the cursor, or finishes the run.
func (p *Player) advance() {
	if p.phase != Playing {
		return
	}
	if p.cursor >= len(p.steps) {
		p.finish()
		return
	}

	step := p.steps[p.cursor]
	r := p.deps.Renderer

	if p.marker == nil {
		pos := step.Coordinate
		r.AddTripMarker(pos)
		r.PanTo(pos)
		p.marker = &pos
		p.completeStep(step, p.showPhotos)
		return
	}

	from := *p.marker
	duration := p.stepDuration
	show := p.showPhotos
	token := p.token
	var start time.Time

	var frame func(now time.Time)
	frame = func(now time.Time) {
		if token != p.token || p.phase != Playing {
			return
		}
		p.cancelFrame = nil
		if start.IsZero() {
			start = now
		}

		t := 1.0
		if duration > 0 {
			t = float64(now.Sub(start)) / float64(duration)
		}
		pos := geo.Lerp(from, step.Coordinate, t)
		r.MoveTripMarker(pos)
		r.PanTo(pos)
		p.marker = &pos

		if t < 1 {
			p.cancelFrame = p.deps.Scheduler.Frame(frame)
			return
		}
		p.completeStep(step, show)
	}
	p.cancelFrame = p.deps.Scheduler.Frame(frame)
}

func (p *Player) completeStep(step core.TripStep, show bool) {
	r := p.deps.Renderer
	if show {
		r.OpenPopup(Popup{
			FileRef: step.FileRef,
			Caption: step.Caption,
			Trip:    step.Trip,
			Taken:   util.PopupTimestamp(step.Timestamp),
		})
	} else {
		r.ClosePopup()
	}

	p.label = util.TimelineLabel(step.Timestamp)
	r.SetTimelineLabel(p.label)
	p.progress = util.Progress(p.cursor, len(p.steps))
	r.SetProgress(p.progress)

	if p.deps.OnStep != nil {
		p.deps.OnStep(p.cursor, step)
	}
	p.cursor++
	p.notify()

	token := p.token
	p.cancelTimer = p.deps.Scheduler.AfterFunc(p.stepDuration, func() {
		if token != p.token {
			return
		}
		p.cancelTimer = nil
		p.advance()
	})
}

func (p *Player) finish() {
	p.cancelPending()
	p.phase = Finished
	p.logger.Debug("Trip finished", "steps", len(p.steps))
	p.notify()
	if p.deps.OnFinish != nil {
		p.deps.OnFinish()
	}
	if p.resetOnFinish {
		p.Reset()
	}
}

func (p *Player) playCue() {
	if p.deps.Audio == nil {
		return
	}
	p.deps.Audio.Rewind()
	if err := p.deps.Audio.Play(); err != nil {
		p.logger.Warn("Trip audio playback failed", "error", err)
	}
}

func (p *Player) cancelPending() {
	p.token++
	if p.cancelTimer != nil {
		p.cancelTimer()
		p.cancelTimer = nil
	}
	if p.cancelFrame != nil {
		p.cancelFrame()
		p.cancelFrame = nil
	}
}

func (p *Player) notify() {
	if p.deps.OnChange != nil {
		p.deps.OnChange(p.State())
	}
}
