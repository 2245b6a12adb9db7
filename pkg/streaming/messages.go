// Package streaming defines the JSON envelopes exchanged with browser
// renderers over the WebSocket.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/phototrip/phototrip/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	// marker layer
	TypeAddLayerGroup     = "add_layer_group"
	TypeRemoveLayerGroup  = "remove_layer_group"
	TypeAddMarker         = "add_marker"
	TypeRemoveMarker      = "remove_marker"
	TypeFitBounds         = "fit_bounds"
	TypeInvalidateSize    = "invalidate_size"
	TypeSetYears          = "set_years"
	TypeSetGallery        = "set_gallery"
	TypeSetGalleryVisible = "set_gallery_visible"

	// trip replay
	TypeAddTripMarker    = "add_trip_marker"
	TypeMoveTripMarker   = "move_trip_marker"
	TypeRemoveTripMarker = "remove_trip_marker"
	TypeAddRoute         = "add_route"
	TypeRemoveRoute      = "remove_route"
	TypePanTo            = "pan_to"
	TypeOpenPopup        = "open_popup"
	TypeClosePopup       = "close_popup"
	TypeSetTimelineLabel = "set_timeline_label"
	TypeSetProgress      = "set_progress"

	// audio cue
	TypeAudioPlay   = "audio_play"
	TypeAudioPause  = "audio_pause"
	TypeAudioRewind = "audio_rewind"

	// status
	TypeState = "state"
	TypeError = "error"
	TypeAck   = "ack"

	// browser to server
	TypeUIEvent = "ui_event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals payload into an envelope of the given type. A nil payload
// produces an envelope without one.
func Encode(typ string, payload any) ([]byte, error) {
	env := Envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// AckMessage is the server's answer to a UI event.
type AckMessage struct {
	Type   string `json:"type"` // always "ack"
	For    string `json:"for"`  // the command being acknowledged
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// UIEvent is a control event raised by the browser.
type UIEvent struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ErrorPayload reports a failure the user should see.
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// LayerPayload names a marker layer group.
type LayerPayload struct {
	Layer string `json:"layer"`
}

// RemoveMarkerPayload identifies a marker within its layer.
type RemoveMarkerPayload struct {
	Layer string `json:"layer"`
	ID    string `json:"id"`
}

// BoundsPayload is a viewport rectangle.
type BoundsPayload struct {
	SouthWest core.Coordinate `json:"southWest"`
	NorthEast core.Coordinate `json:"northEast"`
}

// RoutePayload is the trip polyline.
type RoutePayload struct {
	Path []core.Coordinate `json:"path"`
}

// TextPayload carries a label.
type TextPayload struct {
	Text string `json:"text"`
}

// ProgressPayload carries a fraction in [0, 1].
type ProgressPayload struct {
	Fraction float64 `json:"fraction"`
}

// VisiblePayload toggles a panel.
type VisiblePayload struct {
	Visible bool `json:"visible"`
}
