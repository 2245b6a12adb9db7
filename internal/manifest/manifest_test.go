package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/pkg/core"
)

func TestDecode_FlatStrings(t *testing.T) {
	descs, err := Decode(strings.NewReader(`["a.jpg", "b.jpg"]`))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, core.KindExtract, descs[0].Kind)
	assert.Equal(t, "a.jpg", descs[0].FileRef)
	assert.Equal(t, "b.jpg", descs[1].FileRef)
}

func TestDecode_FlatObjects(t *testing.T) {
	doc := `[
		{"path": "a.jpg", "caption": "first"},
		{"path": "b.jpg", "lat": 10, "lon": 20, "datetime": "2023:05:01 10:00:00"},
		{"path": "c.jpg", "lat": null, "lon": null, "datetime": ""}
	]`
	descs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, descs, 3)

	assert.Equal(t, core.KindExtract, descs[0].Kind)
	assert.Equal(t, "first", descs[0].Caption)

	assert.Equal(t, core.KindPrecomputed, descs[1].Kind)
	require.NotNil(t, descs[1].Lat)
	assert.Equal(t, 10.0, *descs[1].Lat)
	assert.Equal(t, 20.0, *descs[1].Lon)
	assert.Equal(t, "2023:05:01 10:00:00", descs[1].DateTime)

	assert.Equal(t, core.KindPrecomputed, descs[2].Kind)
	assert.Nil(t, descs[2].Lat)
	assert.Nil(t, descs[2].Lon)
}

func TestDecode_TripMappingKeepsOrder(t *testing.T) {
	doc := `{
		"zanzibar": [{"path": "z1.jpg", "lat": 1, "lon": 2, "datetime": ""}],
		"": ["root.jpg"],
		"alps": [{"path": "a1.jpg"}, {"path": "a2.jpg"}]
	}`
	descs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, descs, 4)

	var trips, refs []string
	for _, d := range descs {
		trips = append(trips, d.Trip)
		refs = append(refs, d.FileRef)
	}
	assert.Equal(t, []string{"zanzibar", "", "alps", "alps"}, trips)
	assert.Equal(t, []string{"z1.jpg", "root.jpg", "a1.jpg", "a2.jpg"}, refs)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"scalar", `42`},
		{"broken json", `[{"path": `},
		{"number item", `[1]`},
		{"missing path", `[{"caption": "x"}]`},
		{"trip not array", `{"t": "a.jpg"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "expected ErrFormat, got %v", err)
		})
	}
}

func TestLoader_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "photos.json")
	require.NoError(t, os.WriteFile(p, []byte(`["a.jpg"]`), 0644))

	descs, err := NewLoader(0).Load(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, descs, 1)
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"path": "a.jpg", "lat": 1, "lon": 1}]`))
	}))
	defer srv.Close()

	l := NewLoader(5 * time.Second)

	descs, err := l.Load(context.Background(), srv.URL+"/photos.json")
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, core.KindPrecomputed, descs[0].Kind)

	_, err = l.Load(context.Background(), srv.URL+"/missing.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "404")
}

func TestLoader_FailuresWrapErrLoad(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0644))

	for _, src := range []string{"", filepath.Join(t.TempDir(), "nope.json"), bad} {
		_, err := NewLoader(0).Load(context.Background(), src)
		require.Error(t, err, src)
		assert.ErrorIs(t, err, ErrLoad, src)
	}

	_, err := NewLoader(0).Load(context.Background(), bad)
	assert.ErrorIs(t, err, ErrFormat)
}

type stubExtractor map[string]exif.Tags

func (s stubExtractor) Extract(_ context.Context, fileRef string) (exif.Tags, error) {
	if fileRef == "broken.jpg" {
		return exif.Tags{}, errors.New("corrupt")
	}
	tags, ok := s[fileRef]
	if !ok {
		return exif.Tags{}, exif.ErrNoTags
	}
	return tags, nil
}

func TestGenerator(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"root.jpg", "broken.jpg", "notes.txt", "italy/rome.JPG", "italy/venice.png"} {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	g := &Generator{
		Root:       root,
		PathPrefix: "photos",
		Location:   time.UTC,
		Extractor: stubExtractor{
			"italy/rome.JPG": {
				Latitude: []float64{41, 54, 0}, LatitudeRef: "N",
				Longitude: []float64{12, 30, 0}, LongitudeRef: "E",
				DateTimeOriginal: "2023:05:01 10:00:00",
			},
			"italy/venice.png": {
				Latitude: []float64{0, 0, 0}, LatitudeRef: "N",
				Longitude: []float64{0, 0, 0}, LongitudeRef: "E",
			},
		},
	}

	doc, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Len())

	byTrip := map[string][]Entry{}
	for _, trip := range doc.Trips {
		byTrip[trip.Name] = trip.Entries
	}
	require.Len(t, byTrip[""], 1)
	assert.Equal(t, "photos/root.jpg", byTrip[""][0].Path)
	assert.Nil(t, byTrip[""][0].Lat)
	assert.Empty(t, byTrip[""][0].DateTime)

	require.Len(t, byTrip["italy"], 2)
	rome := byTrip["italy"][0]
	assert.Equal(t, "photos/italy/rome.JPG", rome.Path)
	assert.Equal(t, "2023-05-01T10:00:00.000Z", rome.DateTime)
	require.NotNil(t, rome.Lat)
	assert.InDelta(t, 41.9, *rome.Lat, 1e-9)
	assert.InDelta(t, 12.5, *rome.Lon, 1e-9)

	venice := byTrip["italy"][1]
	assert.Nil(t, venice.Lat, "zero coordinates are written as null")
	assert.Nil(t, venice.Lon)
}

func TestGenerator_MissingRoot(t *testing.T) {
	g := &Generator{Root: filepath.Join(t.TempDir(), "nope"), Extractor: stubExtractor{}}
	_, err := g.Generate(context.Background())
	assert.Error(t, err)
}

func TestWriteFile_RoundTripsThroughDecode(t *testing.T) {
	lat, lon := 10.0, 20.0
	doc := Document{Trips: []Trip{
		{Name: "b", Entries: []Entry{{Path: "b/1.jpg", DateTime: "2023-05-01T10:00:00.000Z", Lat: &lat, Lon: &lon}}},
		{Name: "a", Entries: []Entry{{Path: "a/1.jpg"}}},
	}}
	p := filepath.Join(t.TempDir(), "photos.json")
	require.NoError(t, WriteFile(p, doc))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
	assert.Contains(t, string(raw), "\n  \"b\": [\n")
	assert.Contains(t, string(raw), `"lat": null`)

	descs, err := NewLoader(0).Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "b", descs[0].Trip)
	assert.Equal(t, "a", descs[1].Trip)
	assert.Equal(t, core.KindPrecomputed, descs[1].Kind)
}
