// Package view turns marker index results into renderer commands.
//
// The projector never diffs: every projection starts from a cleared layer.
package view

import (
	"fmt"

	"github.com/phototrip/phototrip/internal/cache"
	"github.com/phototrip/phototrip/internal/index"
	"github.com/phototrip/phototrip/internal/util"
	"github.com/phototrip/phototrip/pkg/core"
)

// Layer names a marker layer group.
type Layer string

const (
	LayerClustered Layer = "clustered"
	LayerPlain     Layer = "plain"
)

// AllYearsLabel is the selector entry for the empty filter.
const AllYearsLabel = "All Years"

// Marker is one photo marker.
type Marker struct {
	ID              string          `json:"id"`
	Position        core.Coordinate `json:"position"`
	FileRef         string          `json:"fileRef"`
	Caption         string          `json:"caption"`
	Trip            string          `json:"trip,omitempty"`
	Taken           string          `json:"taken,omitempty"`
	LocationUnknown bool            `json:"locationUnknown"`
}

// Thumbnail is one gallery entry.
type Thumbnail struct {
	FileRef         string `json:"fileRef"`
	Caption         string `json:"caption"`
	Taken           string `json:"taken,omitempty"`
	LocationUnknown bool   `json:"locationUnknown"`
}

// YearOption is one year selector entry. Value "" selects every year.
type YearOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Renderer receives the marker and panel commands.
type Renderer interface {
	AddLayerGroup(layer Layer)
	RemoveLayerGroup(layer Layer)
	AddMarker(layer Layer, m Marker)
	RemoveMarker(layer Layer, id string)
	FitBounds(sw, ne core.Coordinate)
	// ForgetBounds drops the last fitted viewport without moving the map,
	// so a rebuild with no bounds does not inherit the previous box.
	ForgetBounds()
	InvalidateSize()
	SetYears(options []YearOption)
	SetGallery(items []Thumbnail)
	SetGalleryVisible(visible bool)
}

// State is the projector's own state.
type State struct {
	Clustering     bool `json:"clustering"`
	GalleryVisible bool `json:"galleryVisible"`
	Markers        int  `json:"markers"`
}

// Projector owns when renderer calls happen. It is not safe for concurrent use.
type Projector struct {
	renderer Renderer
	markers  *cache.MarkerCache

	clustering     bool
	galleryVisible bool

	group      Layer
	groupShown bool
}

// New creates a Projector with the given initial toggles.
func New(r Renderer, clustering, galleryVisible bool) *Projector {
	return &Projector{
		renderer:       r,
		markers:        cache.NewMarkerCache(),
		clustering:     clustering,
		galleryVisible: galleryVisible,
	}
}

// Clear removes every marker added by the previous projection.
func (p *Projector) Clear() {
	for _, id := range p.markers.All() {
		layer, _ := p.markers.Get(id)
		p.renderer.RemoveMarker(Layer(layer), id)
	}
	p.markers.Reset()
	p.renderer.ForgetBounds()
}

// Project adds a marker for every visible record with a position, fits the
// viewport to non-empty bounds and refreshes the year selector and gallery.
// Call Clear first.
func (p *Projector) Project(res index.Result) {
	layer := p.Layer()
	if !p.groupShown || p.group != layer {
		if p.groupShown {
			p.renderer.RemoveLayerGroup(p.group)
		}
		p.renderer.AddLayerGroup(layer)
		p.group, p.groupShown = layer, true
	}

	gallery := make([]Thumbnail, 0, len(res.Visible))
	for i, r := range res.Visible {
		taken := ""
		if r.Timestamp != nil {
			taken = util.PopupTimestamp(*r.Timestamp)
		}
		gallery = append(gallery, Thumbnail{
			FileRef:         r.FileRef,
			Caption:         r.Caption,
			Taken:           taken,
			LocationUnknown: r.LocationUnknown(),
		})

		pos, ok := r.MarkerPosition()
		if !ok {
			continue
		}
		m := Marker{
			ID:              fmt.Sprintf("m%d", i),
			Position:        pos,
			FileRef:         r.FileRef,
			Caption:         r.Caption,
			Trip:            r.Trip,
			Taken:           taken,
			LocationUnknown: r.LocationUnknown(),
		}
		p.renderer.AddMarker(layer, m)
		p.markers.Set(m.ID, string(layer))
	}

	if sw, ne, ok := res.Bounds.Corners(); ok {
		p.renderer.FitBounds(sw, ne)
	}
	p.renderer.SetYears(YearOptions(res.Years))
	p.renderer.SetGallery(gallery)
}

// SetClustering switches the marker layer used by the next projection and
// reports whether the mode changed.
func (p *Projector) SetClustering(on bool) bool {
	changed := p.clustering != on
	p.clustering = on
	return changed
}

// SetGalleryVisible shows or hides the gallery panel and lets the map
// recompute its size.
func (p *Projector) SetGalleryVisible(visible bool) {
	p.galleryVisible = visible
	p.renderer.SetGalleryVisible(visible)
	p.renderer.InvalidateSize()
}

// Layer returns the layer group for the current clustering mode.
func (p *Projector) Layer() Layer {
	if p.clustering {
		return LayerClustered
	}
	return LayerPlain
}

// State returns a snapshot.
func (p *Projector) State() State {
	return State{
		Clustering:     p.clustering,
		GalleryVisible: p.galleryVisible,
		Markers:        p.markers.Len(),
	}
}

// YearOptions prepends the "All Years" entry to the distinct years.
func YearOptions(years []string) []YearOption {
	opts := make([]YearOption, 0, len(years)+1)
	opts = append(opts, YearOption{Value: index.AllYears, Label: AllYearsLabel})
	for _, y := range years {
		opts = append(opts, YearOption{Value: y, Label: y})
	}
	return opts
}
