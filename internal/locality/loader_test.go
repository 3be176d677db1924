package locality

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mboahomes/trust-engine/internal/model"
)

func writeCityShapefile(t *testing.T, cities []model.City) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ID", 32),
		shp.StringField("NAME", 64),
	})

	for n, c := range cities {
		w.Write(&shp.Point{X: c.Centroid.Lng, Y: c.Centroid.Lat})
		require.NoError(t, w.WriteAttribute(n, 0, c.ID))
		require.NoError(t, w.WriteAttribute(n, 1, c.Name))
	}
	w.Close()
	return path
}

func TestLoadCitiesShapefile_Points(t *testing.T) {
	want := []model.City{
		{ID: "douala", Name: "Douala", Centroid: model.Coordinates{Lat: 4.0511, Lng: 9.7679}},
		{ID: "yaounde", Name: "Yaounde", Centroid: model.Coordinates{Lat: 3.848, Lng: 11.5021}},
	}
	path := writeCityShapefile(t, want)

	got, err := LoadCitiesShapefile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, city := range got {
		assert.Equal(t, want[i].ID, city.ID)
		assert.Equal(t, want[i].Name, city.Name)
		assert.InDelta(t, want[i].Centroid.Lat, city.Centroid.Lat, 1e-6)
		assert.InDelta(t, want[i].Centroid.Lng, city.Centroid.Lng, 1e-6)
	}
}

func TestLoadCitiesShapefile_SkipsBlankAttributes(t *testing.T) {
	path := writeCityShapefile(t, []model.City{
		{ID: "douala", Name: "Douala", Centroid: model.Coordinates{Lat: 4.05, Lng: 9.77}},
		{ID: "", Name: "Nameless", Centroid: model.Coordinates{Lat: 1, Lng: 1}},
	})

	got, err := LoadCitiesShapefile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "douala", got[0].ID)
}

func TestLoadCitiesShapefile_MissingFile(t *testing.T) {
	_, err := LoadCitiesShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}

func TestShapeCentroid_Point(t *testing.T) {
	c, ok := shapeCentroid(&shp.Point{X: 9.7679, Y: 4.0511})
	require.True(t, ok)
	assert.InDelta(t, 4.0511, c.Lat, 1e-9)
	assert.InDelta(t, 9.7679, c.Lng, 1e-9)
}

func TestShapeCentroid_Polygon(t *testing.T) {
	// Unit square around (0.5, 0.5).
	poly := &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
		},
	}

	c, ok := shapeCentroid(poly)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Lat, 1e-9)
	assert.InDelta(t, 0.5, c.Lng, 1e-9)
}

func TestShapeCentroid_UnsupportedGeometry(t *testing.T) {
	_, ok := shapeCentroid(&shp.PolyLine{})
	assert.False(t, ok)
}

func TestPolygonToGeom_DegeneratePolygon(t *testing.T) {
	assert.Nil(t, polygonToGeom(nil))
	assert.Nil(t, polygonToGeom(&shp.Polygon{}))
	assert.Nil(t, polygonToGeom(&shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points:   []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}))
}
