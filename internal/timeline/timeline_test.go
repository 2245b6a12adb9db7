package timeline

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/pkg/core"
)

func rec(ref string, coord *core.Coordinate, ts *time.Time) core.PhotoRecord {
	r := core.PhotoRecord{FileRef: ref, Coordinate: coord}
	if ts != nil {
		r.SetTimestamp(*ts)
	}
	return r
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestBuild_FiltersAndSorts(t *testing.T) {
	fallback := rec("b.jpg", nil, ts("2023-05-02T11:00:00Z"))
	fallback.Fallback = &core.Coordinate{Lat: 48.85, Lon: 2.35}

	visible := []core.PhotoRecord{
		rec("late.jpg", &core.Coordinate{Lat: 3, Lon: 3}, ts("2023-06-01T00:00:00Z")),
		fallback,
		rec("notime.jpg", &core.Coordinate{Lat: 4, Lon: 4}, nil),
		rec("a.jpg", &core.Coordinate{Lat: 10, Lon: 20}, ts("2023-05-01T10:00:00Z")),
	}

	steps := Build(visible)

	require.Len(t, steps, 2)
	assert.Equal(t, "a.jpg", steps[0].FileRef)
	assert.Equal(t, core.Coordinate{Lat: 10, Lon: 20}, steps[0].Coordinate)
	assert.Equal(t, "late.jpg", steps[1].FileRef)
}

func TestBuild_StableOnTies(t *testing.T) {
	same := ts("2022-01-01T00:00:00Z")
	visible := []core.PhotoRecord{
		rec("first", &core.Coordinate{Lat: 1, Lon: 1}, same),
		rec("second", &core.Coordinate{Lat: 2, Lon: 2}, same),
		rec("third", &core.Coordinate{Lat: 3, Lon: 3}, same),
	}

	steps := Build(visible)

	require.Len(t, steps, 3)
	assert.Equal(t, "first", steps[0].FileRef)
	assert.Equal(t, "second", steps[1].FileRef)
	assert.Equal(t, "third", steps[2].FileRef)
}

func TestBuild_NonDecreasingAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		visible := make([]core.PhotoRecord, n)
		for i := range visible {
			var coord *core.Coordinate
			if rng.Intn(4) != 0 {
				coord = &core.Coordinate{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
			}
			var at *time.Time
			if rng.Intn(4) != 0 {
				v := base.Add(time.Duration(rng.Intn(1000)) * time.Hour)
				at = &v
			}
			visible[i] = rec("p", coord, at)
		}

		steps := Build(visible)

		assert.LessOrEqual(t, len(steps), len(visible))
		for i := 1; i < len(steps); i++ {
			assert.False(t, steps[i].Timestamp.Before(steps[i-1].Timestamp))
		}
	}
}

func TestBuild_DoesNotShareInput(t *testing.T) {
	visible := []core.PhotoRecord{rec("a", &core.Coordinate{Lat: 1, Lon: 1}, ts("2022-01-01T00:00:00Z"))}

	steps := Build(visible)
	visible[0].Coordinate.Lat = 50

	assert.Equal(t, 1.0, steps[0].Coordinate.Lat)
}

func TestPath(t *testing.T) {
	steps := []core.TripStep{
		{Coordinate: core.Coordinate{Lat: 1, Lon: 2}},
		{Coordinate: core.Coordinate{Lat: 3, Lon: 4}},
	}
	assert.Equal(t, []core.Coordinate{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}, Path(steps))
	assert.Empty(t, Path(nil))
}
