package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/pkg/core"
)

// LoadPoint describes a finished manifest load.
func LoadPoint(run model.LoadRun) *influxdb2_write.Point {
	status := "ok"
	if run.Error != "" {
		status = "error"
	}
	p := influxdb2_write.NewPoint(
		"manifest_load",
		map[string]string{"status": status},
		map[string]any{
			"generation":  int64(run.Generation),
			"total":       run.Total,
			"located":     run.Located,
			"unknown":     run.Unknown,
			"timestamped": run.Timestamped,
			"failed":      run.Failed,
			"steps":       run.Steps,
			"duration_ms": run.DurationMs,
		},
		run.StartedAt,
	)
	// empty tag values are not valid line protocol
	if run.Source != "" {
		p.AddTag("source", run.Source)
	}
	return p
}

// RebuildPoint describes one marker index rebuild.
func RebuildPoint(filter string, visible, steps int, at time.Time) *influxdb2_write.Point {
	if filter == "" {
		filter = "all"
	}
	return influxdb2_write.NewPoint(
		"marker_rebuild",
		map[string]string{"filter": filter},
		map[string]any{
			"visible": visible,
			"steps":   steps,
		},
		at,
	)
}

// StepPoint describes a replayed trip step.
func StepPoint(index int, step core.TripStep, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPoint(
		"trip_step",
		nil,
		map[string]any{
			"index":    index,
			"lat":      step.Coordinate.Lat,
			"lon":      step.Coordinate.Lon,
			"file_ref": step.FileRef,
		},
		at,
	)
	if step.Trip != "" {
		p.AddTag("trip", step.Trip)
	}
	return p
}

// RecordLoad queues a load point.
func (m *Manager) RecordLoad(run model.LoadRun) {
	m.Enqueue(BucketLoads, LoadPoint(run))
}

// RecordRebuild queues a rebuild point stamped now.
func (m *Manager) RecordRebuild(filter string, visible, steps int) {
	m.Enqueue(BucketLoads, RebuildPoint(filter, visible, steps, time.Now()))
}

// RecordStep queues a playback point stamped now.
func (m *Manager) RecordStep(index int, step core.TripStep) {
	m.Enqueue(BucketPlayback, StepPoint(index, step, time.Now()))
}
