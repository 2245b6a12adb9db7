package websocket

import (
	"github.com/phototrip/phototrip/internal/player"
	"github.com/phototrip/phototrip/internal/util"
	"github.com/phototrip/phototrip/internal/view"
	"github.com/phototrip/phototrip/pkg/core"
	"github.com/phototrip/phototrip/pkg/streaming"
)

var (
	_ view.Renderer   = (*Hub)(nil)
	_ player.Renderer = (*Hub)(nil)
	_ player.Audio    = (*Hub)(nil)
)

type markerPayload struct {
	Layer  string      `json:"layer"`
	Marker view.Marker `json:"marker"`
	URL    string      `json:"url"`
}

type thumbnailPayload struct {
	view.Thumbnail
	URL string `json:"url"`
}

type popupPayload struct {
	player.Popup
	URL string `json:"url"`
}

// marker layer

func (h *Hub) AddLayerGroup(layer view.Layer) {
	h.emit(streaming.TypeAddLayerGroup, streaming.LayerPayload{Layer: string(layer)}, func(s *scene, msg []byte) {
		s.layer, s.layerMsg = string(layer), msg
	})
}

func (h *Hub) RemoveLayerGroup(layer view.Layer) {
	h.emit(streaming.TypeRemoveLayerGroup, streaming.LayerPayload{Layer: string(layer)}, func(s *scene, _ []byte) {
		if s.layer == string(layer) {
			s.layer, s.layerMsg = "", nil
		}
	})
}

func (h *Hub) AddMarker(layer view.Layer, m view.Marker) {
	payload := markerPayload{
		Layer:  string(layer),
		Marker: m,
		URL:    util.PhotoURL(h.deps.PhotoPrefix, m.FileRef),
	}
	h.emit(streaming.TypeAddMarker, payload, func(s *scene, msg []byte) {
		s.addMarker(m.ID, msg)
	})
}

func (h *Hub) RemoveMarker(layer view.Layer, id string) {
	h.emit(streaming.TypeRemoveMarker, streaming.RemoveMarkerPayload{Layer: string(layer), ID: id}, func(s *scene, _ []byte) {
		s.removeMarker(id)
	})
}

func (h *Hub) FitBounds(sw, ne core.Coordinate) {
	h.emit(streaming.TypeFitBounds, streaming.BoundsPayload{SouthWest: sw, NorthEast: ne}, func(s *scene, msg []byte) {
		s.bounds = msg
	})
}

// ForgetBounds updates only the replayed scene; connected browsers keep
// their viewport.
func (h *Hub) ForgetBounds() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene.bounds = nil
}

func (h *Hub) InvalidateSize() {
	h.emit(streaming.TypeInvalidateSize, nil, nil)
}

func (h *Hub) SetYears(options []view.YearOption) {
	h.emit(streaming.TypeSetYears, options, func(s *scene, msg []byte) {
		s.years = msg
	})
}

func (h *Hub) SetGallery(items []view.Thumbnail) {
	payload := make([]thumbnailPayload, len(items))
	for i, it := range items {
		payload[i] = thumbnailPayload{Thumbnail: it, URL: util.PhotoURL(h.deps.PhotoPrefix, it.FileRef)}
	}
	h.emit(streaming.TypeSetGallery, payload, func(s *scene, msg []byte) {
		s.gallery = msg
	})
}

func (h *Hub) SetGalleryVisible(visible bool) {
	h.emit(streaming.TypeSetGalleryVisible, streaming.VisiblePayload{Visible: visible}, func(s *scene, msg []byte) {
		s.galleryVisible = msg
	})
}

// trip replay

func (h *Hub) AddTripMarker(c core.Coordinate) {
	h.emit(streaming.TypeAddTripMarker, c, func(s *scene, msg []byte) {
		s.tripMarker = msg
	})
}

// MoveTripMarker is sent every animation frame. Late joiners get the last
// position as a fresh add.
func (h *Hub) MoveTripMarker(c core.Coordinate) {
	h.emit(streaming.TypeMoveTripMarker, c, func(s *scene, _ []byte) {
		if msg, err := streaming.Encode(streaming.TypeAddTripMarker, c); err == nil {
			s.tripMarker = msg
		}
	})
}

func (h *Hub) RemoveTripMarker() {
	h.emit(streaming.TypeRemoveTripMarker, nil, func(s *scene, _ []byte) {
		s.tripMarker = nil
	})
}

func (h *Hub) AddRoute(path []core.Coordinate) {
	h.emit(streaming.TypeAddRoute, streaming.RoutePayload{Path: path}, func(s *scene, msg []byte) {
		s.route = msg
	})
}

func (h *Hub) RemoveRoute() {
	h.emit(streaming.TypeRemoveRoute, nil, func(s *scene, _ []byte) {
		s.route = nil
	})
}

func (h *Hub) PanTo(c core.Coordinate) {
	h.emit(streaming.TypePanTo, c, nil)
}

func (h *Hub) OpenPopup(p player.Popup) {
	payload := popupPayload{Popup: p, URL: util.PhotoURL(h.deps.PhotoPrefix, p.FileRef)}
	h.emit(streaming.TypeOpenPopup, payload, func(s *scene, msg []byte) {
		s.popup = msg
	})
}

func (h *Hub) ClosePopup() {
	h.emit(streaming.TypeClosePopup, nil, func(s *scene, _ []byte) {
		s.popup = nil
	})
}

func (h *Hub) SetTimelineLabel(text string) {
	h.emit(streaming.TypeSetTimelineLabel, streaming.TextPayload{Text: text}, func(s *scene, msg []byte) {
		s.label = msg
	})
}

func (h *Hub) SetProgress(fraction float64) {
	h.emit(streaming.TypeSetProgress, streaming.ProgressPayload{Fraction: fraction}, func(s *scene, msg []byte) {
		s.progress = msg
	})
}

// audio cue

// Play starts the cue on every browser. It fails when nobody is listening.
func (h *Hub) Play() error {
	h.mu.Lock()
	n := len(h.clients)
	if n > 0 {
		h.playing = true
	}
	h.mu.Unlock()

	if n == 0 {
		return ErrNoRenderer
	}
	h.emit(streaming.TypeAudioPlay, nil, nil)
	return nil
}

func (h *Hub) Pause() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	h.emit(streaming.TypeAudioPause, nil, nil)
}

func (h *Hub) Rewind() {
	h.emit(streaming.TypeAudioRewind, nil, nil)
}

func (h *Hub) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}
