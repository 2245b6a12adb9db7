package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/phototrip/phototrip/internal/dispatcher"
	"github.com/phototrip/phototrip/internal/index"
	"github.com/phototrip/phototrip/internal/util"
)

// UI commands accepted by the loop.
const (
	CmdLoad         = "load"
	CmdFilter       = "filter"
	CmdClustering   = "clustering"
	CmdPlay         = "play"
	CmdPause        = "pause"
	CmdResume       = "resume"
	CmdReset        = "reset"
	CmdShowPhotos   = "show_photos"
	CmdStepDuration = "step_duration"
	CmdGallery      = "gallery"
	CmdState        = "state"
)

// RegisterHandlers registers every UI command with the dispatcher.
// All commands are synchronous so callers see their result.
func (c *Controller) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdLoad, c.handleLoad, dispatcher.Logged())
	d.Register(CmdFilter, c.handleFilter, dispatcher.Logged())
	d.Register(CmdClustering, c.handleClustering, dispatcher.Logged())

	d.Register(CmdPlay, c.handlePlayer(c.Play), dispatcher.Logged())
	d.Register(CmdPause, c.handlePlayer(c.Pause), dispatcher.Logged())
	d.Register(CmdResume, c.handlePlayer(c.Resume), dispatcher.Logged())
	d.Register(CmdReset, c.handlePlayer(c.Reset), dispatcher.Logged())

	d.Register(CmdShowPhotos, c.handleShowPhotos, dispatcher.Logged())
	d.Register(CmdStepDuration, c.handleStepDuration, dispatcher.Logged())
	d.Register(CmdGallery, c.handleGallery, dispatcher.Logged())
	d.Register(CmdState, func(dispatcher.Event) (any, error) {
		return c.deps.Session.Get(), nil
	})
}

func (c *Controller) handleLoad(e dispatcher.Event) (any, error) {
	source := ""
	if len(e.Args) > 0 {
		source = util.TrimQuotes(e.Args[0])
	}
	gen, err := c.Load(source)
	if err != nil {
		return nil, err
	}
	return map[string]any{"generation": gen, "source": c.source}, nil
}

// handleFilter takes an optional year; no argument or "" selects all years.
func (c *Controller) handleFilter(e dispatcher.Event) (any, error) {
	year := index.AllYears
	if len(e.Args) > 0 {
		year = util.TrimQuotes(e.Args[0])
	}
	if year != index.AllYears {
		if _, err := strconv.Atoi(year); err != nil || len(year) != 4 {
			return nil, fmt.Errorf("invalid year %q", year)
		}
	}
	c.SetFilter(year)
	return c.deps.Session.Get(), nil
}

func (c *Controller) handleClustering(e dispatcher.Event) (any, error) {
	on, err := boolArg(e)
	if err != nil {
		return nil, err
	}
	c.SetClustering(on)
	return c.view.State(), nil
}

func (c *Controller) handlePlayer(fn func()) dispatcher.HandlerFunc {
	return func(dispatcher.Event) (any, error) {
		fn()
		return c.player.State(), nil
	}
}

func (c *Controller) handleShowPhotos(e dispatcher.Event) (any, error) {
	show, err := boolArg(e)
	if err != nil {
		return nil, err
	}
	c.SetShowPhotos(show)
	return c.player.State(), nil
}

func (c *Controller) handleStepDuration(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("step duration requires milliseconds")
	}
	ms, err := strconv.ParseInt(util.TrimQuotes(e.Args[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid step duration %q: %w", e.Args[0], err)
	}
	if err := c.SetStepDuration(time.Duration(ms) * time.Millisecond); err != nil {
		return nil, err
	}
	return c.player.State(), nil
}

func (c *Controller) handleGallery(e dispatcher.Event) (any, error) {
	visible, err := boolArg(e)
	if err != nil {
		return nil, err
	}
	c.SetGalleryVisible(visible)
	return c.view.State(), nil
}

func boolArg(e dispatcher.Event) (bool, error) {
	if len(e.Args) < 1 {
		return false, fmt.Errorf("%s requires a boolean", e.Command)
	}
	v, err := strconv.ParseBool(util.TrimQuotes(e.Args[0]))
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", e.Command, e.Args[0])
	}
	return v, nil
}
