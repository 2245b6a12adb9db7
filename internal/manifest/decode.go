// Package manifest reads and writes the JSON photo manifest.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/phototrip/phototrip/pkg/core"
)

var (
	// ErrLoad marks a fatal manifest load failure (transport, status or format).
	ErrLoad = errors.New("manifest load failed")
	// ErrFormat marks a document that is neither accepted shape.
	ErrFormat = errors.New("invalid manifest format")
)

// entry is the object form of a manifest item. A Precomputed entry carries at
// least one of lat, lon or datetime.
type entry struct {
	Path     string   `json:"path"`
	Caption  string   `json:"caption"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	DateTime string   `json:"datetime"`
}

var precomputedKeys = []string{"lat", "lon", "datetime"}

// Decode reads either a flat array of descriptors (strings or objects) or an
// ordered mapping of trip name to such arrays. Mapping order is preserved.
func Decode(r io.Reader) ([]core.PhotoDescriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFormat)
	}

	switch data[0] {
	case '[':
		return decodeList(data, "")
	case '{':
		return decodeTrips(data)
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrFormat)
	}
}

func decodeList(data []byte, trip string) ([]core.PhotoDescriptor, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	out := make([]core.PhotoDescriptor, 0, len(items))
	for i, raw := range items {
		d, err := decodeItem(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrFormat, i, err)
		}
		d.Trip = trip
		out = append(out, d)
	}
	return out, nil
}

func decodeTrips(data []byte) ([]core.PhotoDescriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var out []core.PhotoDescriptor
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		trip, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrFormat, tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: trip %q: %v", ErrFormat, trip, err)
		}
		items, err := decodeList(raw, trip)
		if err != nil {
			return nil, fmt.Errorf("trip %q: %w", trip, err)
		}
		out = append(out, items...)
	}
	return out, nil
}

func decodeItem(raw json.RawMessage) (core.PhotoDescriptor, error) {
	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		if path == "" {
			return core.PhotoDescriptor{}, errors.New("empty path")
		}
		return core.PhotoDescriptor{Kind: core.KindExtract, FileRef: path}, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return core.PhotoDescriptor{}, errors.New("expected string or object")
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return core.PhotoDescriptor{}, err
	}
	if e.Path == "" {
		return core.PhotoDescriptor{}, errors.New("missing path")
	}

	d := core.PhotoDescriptor{
		Kind:    core.KindExtract,
		FileRef: e.Path,
		Caption: e.Caption,
	}
	for _, k := range precomputedKeys {
		if _, ok := keys[k]; ok {
			d.Kind = core.KindPrecomputed
			break
		}
	}
	if d.Kind == core.KindPrecomputed {
		d.Lat, d.Lon, d.DateTime = e.Lat, e.Lon, e.DateTime
	}
	return d, nil
}
