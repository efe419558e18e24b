// Package geomath provides great-circle distance math and geometry
// coordinate extraction for the hazard engines.
package geomath

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// Point is a (lat, lon) coordinate pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceKM returns the great-circle distance in kilometers between two
// points, via the haversine formula. Inputs are assumed to be valid
// latitude/longitude degrees and are not validated here.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// BatchDistanceKM returns the distance from one reference point to each of
// the N target points. Results are identical to element-wise DistanceKM
// calls; the hot loop hoists the reference-point trigonometry out so that
// million-row event stores filter without per-row setup cost.
//
// Panics if lats and lons differ in length: that is a caller bug, not a
// runtime condition.
func BatchDistanceKM(lat, lon float64, lats, lons []float64) []float64 {
	if len(lats) != len(lons) {
		panic("geomath: lats and lons length mismatch")
	}

	latRad := lat * math.Pi / 180
	cosLat := math.Cos(latRad)

	out := make([]float64, len(lats))
	for i := range lats {
		lat2Rad := lats[i] * math.Pi / 180
		dLat := (lats[i] - lat) * math.Pi / 180
		dLon := (lons[i] - lon) * math.Pi / 180

		sinLat := math.Sin(dLat / 2)
		sinLon := math.Sin(dLon / 2)
		a := sinLat*sinLat + cosLat*math.Cos(lat2Rad)*sinLon*sinLon
		out[i] = earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	}
	return out
}

// ExtractPoints flattens a geometry into its coordinate pairs. GeoJSON-style
// geometries carry coordinates as (lon, lat); the returned points are
// (lat, lon). Unsupported geometry kinds yield an empty slice and a logged
// warning, never an error.
func ExtractPoints(g geom.T) []Point {
	if g == nil {
		return nil
	}

	switch t := g.(type) {
	case *geom.Point, *geom.MultiPoint, *geom.LineString,
		*geom.MultiLineString, *geom.Polygon, *geom.MultiPolygon:
		return flatToPoints(t.FlatCoords(), t.Stride())
	case *geom.GeometryCollection:
		var pts []Point
		for _, sub := range t.Geoms() {
			pts = append(pts, ExtractPoints(sub)...)
		}
		return pts
	default:
		zap.L().Warn("geomath: unsupported geometry type",
			zap.String("type", fmt.Sprintf("%T", g)))
		return nil
	}
}

// ExtractPointsGeoJSON parses a GeoJSON geometry document and extracts its
// coordinate pairs. Malformed documents degrade to an empty slice with a
// logged warning.
func ExtractPointsGeoJSON(data []byte) []Point {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		zap.L().Warn("geomath: unparseable geojson geometry", zap.Error(err))
		return nil
	}
	return ExtractPoints(g)
}

// flatToPoints walks a flat coordinate slice with the given stride,
// converting (lon, lat[, ...]) tuples into Points.
func flatToPoints(flat []float64, stride int) []Point {
	if stride < 2 {
		return nil
	}
	pts := make([]Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, Point{Lat: flat[i+1], Lon: flat[i]})
	}
	return pts
}

// MinDistanceToGeometry returns the minimum distance in kilometers from a
// site to any point of the geometry. Returns +Inf when the geometry yields
// no coordinates; that sentinel means "infinitely far", not an error.
func MinDistanceToGeometry(lat, lon float64, g geom.T) float64 {
	minDist := math.Inf(1)
	for _, p := range ExtractPoints(g) {
		if d := DistanceKM(lat, lon, p.Lat, p.Lon); d < minDist {
			minDist = d
		}
	}
	return minDist
}

// Centroid returns the mean of a geometry's extracted coordinates. The
// second return is false when the geometry yields no coordinates.
func Centroid(g geom.T) (Point, bool) {
	pts := ExtractPoints(g)
	if len(pts) == 0 {
		return Point{}, false
	}
	var sumLat, sumLon float64
	for _, p := range pts {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	n := float64(len(pts))
	return Point{Lat: sumLat / n, Lon: sumLon / n}, true
}

// ValidCoordinates reports whether lat/lon are within valid ranges.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
