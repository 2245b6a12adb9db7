package websocket

import (
	"sort"
)

type sceneMarker struct {
	seq int
	msg []byte
}

// scene is the render state a newly connected browser needs, kept as the
// encoded envelopes that produced it.
type scene struct {
	layer    string
	layerMsg []byte

	seq     int
	markers map[string]sceneMarker

	bounds         []byte
	years          []byte
	gallery        []byte
	galleryVisible []byte

	route      []byte
	tripMarker []byte
	popup      []byte
	label      []byte
	progress   []byte
}

func newScene() *scene {
	return &scene{markers: make(map[string]sceneMarker)}
}

func (s *scene) addMarker(id string, msg []byte) {
	s.seq++
	s.markers[id] = sceneMarker{seq: s.seq, msg: msg}
}

func (s *scene) removeMarker(id string) {
	delete(s.markers, id)
}

// replay returns the envelopes in the order a browser must apply them.
func (s *scene) replay() [][]byte {
	var out [][]byte
	add := func(msg []byte) {
		if msg != nil {
			out = append(out, msg)
		}
	}

	add(s.layerMsg)

	markers := make([]sceneMarker, 0, len(s.markers))
	for _, m := range s.markers {
		markers = append(markers, m)
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].seq < markers[j].seq })
	for _, m := range markers {
		add(m.msg)
	}

	add(s.bounds)
	add(s.years)
	add(s.gallery)
	add(s.galleryVisible)
	add(s.route)
	add(s.tripMarker)
	add(s.popup)
	add(s.label)
	add(s.progress)
	return out
}
