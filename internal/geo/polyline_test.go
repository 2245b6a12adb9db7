package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/pkg/core"
)

func TestRoute_Valid(t *testing.T) {
	ls, err := Route([]core.Coordinate{
		{Lat: 10, Lon: 20},
		{Lat: 11, Lon: 21},
		{Lat: 12, Lon: 22},
	})

	require.NoError(t, err)
	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	assert.Equal(t, 20.0, seq.GetXY(0).X)
	assert.Equal(t, 10.0, seq.GetXY(0).Y)
	assert.Equal(t, 22.0, seq.GetXY(2).X)
}

func TestRoute_TooFewPoints(t *testing.T) {
	_, err := Route([]core.Coordinate{{Lat: 1, Lon: 1}})
	require.Error(t, err)
}

func TestRouteLengthMeters(t *testing.T) {
	assert.Zero(t, RouteLengthMeters(nil))
	assert.Zero(t, RouteLengthMeters([]core.Coordinate{{Lat: 1, Lon: 1}}))

	// One degree of longitude on the equator is ~111.32 km in Web Mercator.
	length := RouteLengthMeters([]core.Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}})
	assert.InDelta(t, 111319.49, length, 1.0)
}
