// Package session publishes the engine's state to readers off the event loop.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/phototrip/phototrip/internal/normalize"
	"github.com/phototrip/phototrip/internal/player"
	"github.com/phototrip/phototrip/internal/view"
)

// Snapshot is the engine state as last published by the loop.
type Snapshot struct {
	Generation uint64          `json:"generation"`
	Source     string          `json:"source"`
	Loading    bool            `json:"loading"`
	LoadID     string          `json:"loadId,omitempty"`
	LoadedAt   time.Time       `json:"loadedAt,omitempty"`
	LastError  string          `json:"lastError,omitempty"`
	Stats      normalize.Stats `json:"stats"`

	Filter  string   `json:"filter"`
	Years   []string `json:"years"`
	Records int      `json:"records"`
	Visible int      `json:"visible"`
	Steps   int      `json:"steps"`

	Player player.State `json:"player"`
	View   view.State   `json:"view"`
}

// Context holds the current snapshot.
type Context struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewContext creates a Context with an empty snapshot.
func NewContext() *Context {
	return &Context{
		snap: Snapshot{
			Years: []string{},
		},
	}
}

// Get returns a copy of the current snapshot.
func (c *Context) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.Years = slices.Clone(c.snap.Years)
	if c.snap.Player.Marker != nil {
		m := *c.snap.Player.Marker
		s.Player.Marker = &m
	}
	return s
}

// Update mutates the snapshot under the lock.
func (c *Context) Update(fn func(s *Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
	if c.snap.Years == nil {
		c.snap.Years = []string{}
	}
}

// SetPlayer stores the latest player state.
func (c *Context) SetPlayer(st player.State) {
	c.Update(func(s *Snapshot) { s.Player = st })
}

// Generation returns the current load generation.
func (c *Context) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Generation
}
