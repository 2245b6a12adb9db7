package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/pkg/core"
)

func record(ref string, coord *core.Coordinate, ts string) core.PhotoRecord {
	r := core.PhotoRecord{FileRef: ref, Coordinate: coord}
	if ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			panic(err)
		}
		r.SetTimestamp(t)
	}
	return r
}

func at(lat, lon float64) *core.Coordinate { return &core.Coordinate{Lat: lat, Lon: lon} }

func sample() []core.PhotoRecord {
	unknown := record("b.jpg", nil, "2023-05-02T11:00:00Z")
	unknown.Fallback = at(48.8566, 2.3522)
	return []core.PhotoRecord{
		record("a.jpg", at(10, 20), "2023-05-01T10:00:00Z"),
		unknown,
		record("c.jpg", at(-5, 30), "2021-01-01T00:00:00Z"),
		record("d.jpg", at(1, 1), ""),
	}
}

func TestRebuild_AllYears(t *testing.T) {
	res := Rebuild(sample(), AllYears)

	assert.Len(t, res.Visible, 4, "records without a timestamp pass when no filter is active")
	assert.Equal(t, []string{"2021", "2023"}, res.Years)

	sw, ne, ok := res.Bounds.Corners()
	require.True(t, ok)
	assert.Equal(t, core.Coordinate{Lat: -5, Lon: 1}, sw)
	assert.Equal(t, core.Coordinate{Lat: 48.8566, Lon: 30}, ne, "fallback positions count toward bounds")
}

func TestRebuild_YearFilter(t *testing.T) {
	res := Rebuild(sample(), "2023")

	require.Len(t, res.Visible, 2)
	for _, r := range res.Visible {
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, "2023", r.YearKey)
	}
	assert.Equal(t, []string{"2021", "2023"}, res.Years, "years always come from the unfiltered batch")
}

func TestRebuild_NoMatchHasEmptyBounds(t *testing.T) {
	res := Rebuild(sample(), "2022")

	assert.Empty(t, res.Visible)
	assert.True(t, res.Bounds.IsEmpty())
	_, _, ok := res.Bounds.Corners()
	assert.False(t, ok)
}

func TestRebuild_Idempotent(t *testing.T) {
	records := sample()
	first := Rebuild(records, "2023")
	second := Rebuild(records, "2023")

	assert.Equal(t, len(first.Visible), len(second.Visible))
	assert.Equal(t, first.Years, second.Years)
	assert.True(t, first.Bounds.Equal(second.Bounds))
}

func TestRebuild_DoesNotMutateSource(t *testing.T) {
	records := sample()
	snapshot := make([]core.PhotoRecord, len(records))
	copy(snapshot, records)

	Rebuild(records, "2021")

	assert.Equal(t, snapshot, records)
}

func TestRebuild_SkippedLocationHasNoBounds(t *testing.T) {
	res := Rebuild([]core.PhotoRecord{record("x.jpg", nil, "2020-01-01T00:00:00Z")}, AllYears)

	assert.Len(t, res.Visible, 1)
	assert.True(t, res.Bounds.IsEmpty())
	assert.Equal(t, []string{"2020"}, res.Years)
}

func TestYears_Empty(t *testing.T) {
	assert.Equal(t, []string{}, Years(nil))
}
