// Package locality maintains the city reference index and validates that a
// listing's claimed GPS position is consistent with its declared city.
package locality

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/model"
)

// LoadCitiesShapefile reads a city reference shapefile and returns one City
// per shape. Point shapes are used directly; polygon shapes contribute
// their planar centroid. Shapes missing an id or name attribute, or with
// unsupported geometry, are skipped and counted.
func LoadCitiesShapefile(path string) ([]model.City, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "locality: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, okID := fieldIdx["id"]
	nameIdx, okName := fieldIdx["name"]
	if !okID || !okName {
		return nil, eris.Errorf("locality: shapefile %s lacks id/name attributes", path)
	}

	var cities []model.City
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if id == "" || name == "" {
			skipped++
			continue
		}

		centroid, ok := shapeCentroid(shape)
		if !ok {
			skipped++
			continue
		}

		cities = append(cities, model.City{ID: id, Name: name, Centroid: centroid})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "locality: read shapefile %s", path)
	}

	zap.L().Info("locality: shapefile parsed",
		zap.String("path", path),
		zap.Int("cities", len(cities)),
		zap.Int("skipped", skipped),
	)
	return cities, nil
}

// shapeCentroid reduces a shapefile geometry to a single reference point.
func shapeCentroid(shape shp.Shape) (model.Coordinates, bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return model.Coordinates{Lat: s.Y, Lng: s.X}, true

	case *shp.Polygon:
		poly := polygonToGeom(s)
		if poly == nil {
			return model.Coordinates{}, false
		}
		c, err := xy.Centroid(poly)
		if err != nil {
			return model.Coordinates{}, false
		}
		return model.Coordinates{Lat: c.Y(), Lng: c.X()}, true

	default:
		return model.Coordinates{}, false
	}
}

// polygonToGeom converts a shapefile polygon's outer ring to a geom.Polygon.
func polygonToGeom(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	end := int32(len(p.Points))
	if p.NumParts > 1 {
		end = p.Parts[1]
	}

	coords := make([]geom.Coord, 0, end)
	for _, pt := range p.Points[:end] {
		coords = append(coords, geom.Coord{pt.X, pt.Y})
	}
	if len(coords) < 4 {
		return nil
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil
	}
	return poly
}
