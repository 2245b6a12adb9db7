package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/internal/model"
	"github.com/phototrip/phototrip/pkg/core"
)

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func unreachable(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")
	viper.Set("influx.org", "phototrip")
}

func TestConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "metrics.gz"))
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	unreachable(t)
	path := filepath.Join(t.TempDir(), "metrics.gz")

	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	m.Enqueue(BucketLoads, LoadPoint(model.LoadRun{
		Source:    "photos.json",
		Total:     3,
		StartedAt: time.Unix(1700000000, 0),
	}))
	assert.Equal(t, 1, m.Pending())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Pending())

	out := readBackup(t, path)
	assert.Contains(t, out, "manifest_load,")
	assert.Contains(t, out, "status=ok")
	assert.Contains(t, out, "total=3i")
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(BucketLoads, RebuildPoint("", 1, 1, time.Now()))
	assert.Error(t, err)
}

func TestStart_FlushesPeriodically(t *testing.T) {
	unreachable(t)
	path := filepath.Join(t.TempDir(), "metrics.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.Connect(context.Background()))

	m.Start(10 * time.Millisecond)
	m.Enqueue(BucketPlayback, StepPoint(0, core.TripStep{Trip: "alps"}, time.Now()))
	assert.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close())

	assert.Contains(t, readBackup(t, path), "trip_step,trip=alps")
}

func TestPoints(t *testing.T) {
	at := time.Unix(1700000000, 0)

	line := influxdb2_write.PointToLineProtocol(RebuildPoint("", 4, 2, at), time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "marker_rebuild,filter=all "))
	assert.Contains(t, line, "visible=4i")

	line = influxdb2_write.PointToLineProtocol(LoadPoint(model.LoadRun{Error: "boom", StartedAt: at}), time.Nanosecond)
	assert.Contains(t, line, "status=error")

	line = influxdb2_write.PointToLineProtocol(StepPoint(2, core.TripStep{
		Coordinate: core.Coordinate{Lat: 1.5, Lon: 2.5},
		FileRef:    "a.jpg",
	}, at), time.Nanosecond)
	assert.Contains(t, line, "index=2i")
	assert.Contains(t, line, "lat=1.5")
}

func TestRecorders_QueueByBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")

	m.RecordLoad(model.LoadRun{Source: "photos.json", StartedAt: time.Now()})
	m.RecordRebuild("2024", 3, 2)
	m.RecordStep(0, core.TripStep{FileRef: "a.jpg"})
	assert.Equal(t, 3, m.Pending())

	pending := m.pending.Drain()
	require.Len(t, pending, 3)
	assert.Equal(t, BucketLoads, pending[0].bucket)
	assert.Equal(t, BucketLoads, pending[1].bucket)
	assert.Equal(t, BucketPlayback, pending[2].bucket)
}
