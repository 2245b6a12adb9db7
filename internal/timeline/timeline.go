// Package timeline builds the ordered trip sequence from visible records.
package timeline

import (
	"slices"

	"github.com/phototrip/phototrip/pkg/core"
)

// Build keeps the records that have both a real coordinate and a timestamp
// and orders them by timestamp. Ties keep their input order. Fallback
// positions never enter the trip.
func Build(visible []core.PhotoRecord) []core.TripStep {
	steps := make([]core.TripStep, 0, len(visible))
	for _, r := range visible {
		if r.Coordinate == nil || r.Timestamp == nil {
			continue
		}
		steps = append(steps, core.TripStep{
			Coordinate: *r.Coordinate,
			Timestamp:  *r.Timestamp,
			FileRef:    r.FileRef,
			Caption:    r.Caption,
			Trip:       r.Trip,
		})
	}
	slices.SortStableFunc(steps, func(a, b core.TripStep) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return steps
}

// Path returns the coordinates of steps in order.
func Path(steps []core.TripStep) []core.Coordinate {
	path := make([]core.Coordinate, len(steps))
	for i, s := range steps {
		path[i] = s.Coordinate
	}
	return path
}
