// Package route loads travel routes and accumulates site risk along them.
package route

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/riskradar/riskradar/internal/geomath"
	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/site"
)

// Waypoint is one ordered stop on a route. Risk fields are populated by
// AssignRisks; a waypoint with no matching site keeps zero risk.
// AccumulatedRisk is the running probability of at least one event from the
// route start up to and including this point, set by Accumulate.
type Waypoint struct {
	Order           int     `json:"order"`
	Name            string  `json:"name"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	FireProb        float64 `json:"fire_prob"`
	QuakeProb       float64 `json:"quake_prob"`
	AccumulatedRisk float64 `json:"accumulated_risk"`
	Matched         bool    `json:"matched"`
}

// Route is an ordered sequence of waypoints.
type Route struct {
	ID        string     `json:"id"`
	Waypoints []Waypoint `json:"waypoints"`
}

// LoadCSV reads routes from a CSV with columns route_id, order, name, lat,
// lon. Waypoints are sorted by order within each route and routes come back
// sorted by id.
func LoadCSV(path string) ([]Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "route: open %s", path)
	}
	defer f.Close()

	routes, err := parseCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "route: parse %s", path)
	}
	zap.L().Info("loaded routes", zap.String("path", path), zap.Int("routes", len(routes)))
	return routes, nil
}

func parseCSV(r io.Reader) ([]Route, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"route_id", "order", "name", "lat", "lon"} {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("missing column %s", col)
		}
	}

	byID := map[string][]Waypoint{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read line %d", line)
		}

		order, err := strconv.Atoi(strings.TrimSpace(rec[idx["order"]]))
		if err != nil {
			return nil, eris.Wrapf(err, "line %d: parse order", line)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["lat"]]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "line %d: parse lat", line)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["lon"]]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "line %d: parse lon", line)
		}
		if !geomath.ValidCoordinates(lat, lon) {
			return nil, eris.Errorf("line %d: coordinates out of range: %f, %f", line, lat, lon)
		}

		id := strings.TrimSpace(rec[idx["route_id"]])
		byID[id] = append(byID[id], Waypoint{
			Order: order,
			Name:  strings.TrimSpace(rec[idx["name"]]),
			Lat:   lat,
			Lon:   lon,
		})
	}
	if len(byID) == 0 {
		return nil, eris.New("no routes found")
	}

	routes := make([]Route, 0, len(byID))
	for id, wps := range byID {
		sort.Slice(wps, func(i, j int) bool { return wps[i].Order < wps[j].Order })
		routes = append(routes, Route{ID: id, Waypoints: wps})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}

// LoadShapefile reads polyline shapes as routes. Each shape becomes one
// route whose waypoints are the shape's vertices in order; the route id
// comes from the shape index.
func LoadShapefile(path string) ([]Route, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "route: open shapefile %s", path)
	}
	defer r.Close()

	var routes []Route
	for r.Next() {
		n, s := r.Shape()
		line, ok := s.(*shp.PolyLine)
		if !ok {
			zap.L().Warn("skipping non-polyline shape", zap.Int("index", n))
			continue
		}

		wps := make([]Waypoint, 0, len(line.Points))
		for i, p := range line.Points {
			// Shapefile points are x=lon, y=lat.
			if !geomath.ValidCoordinates(p.Y, p.X) {
				return nil, eris.Errorf("route: shape %d point %d out of range", n, i)
			}
			wps = append(wps, Waypoint{Order: i, Lat: p.Y, Lon: p.X})
		}
		routes = append(routes, Route{ID: strconv.Itoa(n), Waypoints: wps})
	}
	if err := r.Err(); err != nil {
		return nil, eris.Wrapf(err, "route: read shapefile %s", path)
	}
	if len(routes) == 0 {
		return nil, eris.Errorf("route: shapefile %s has no polylines", path)
	}

	zap.L().Info("loaded routes from shapefile", zap.String("path", path), zap.Int("routes", len(routes)))
	return routes, nil
}

// AssignRisks attaches per-hazard probabilities to each waypoint from the
// scored sites: an exact name match wins, otherwise the nearest site within
// matchRadiusKM. Unmatched waypoints stay at zero risk.
func AssignRisks(routes []Route, risks []risk.SiteRisk, registry *site.Registry, matchRadiusKM float64) {
	byName := make(map[string]risk.SiteRisk, len(risks))
	for _, sr := range risks {
		byName[strings.ToLower(sr.Site)] = sr
	}

	for ri := range routes {
		for wi := range routes[ri].Waypoints {
			wp := &routes[ri].Waypoints[wi]

			if sr, ok := byName[strings.ToLower(wp.Name)]; ok && wp.Name != "" {
				wp.FireProb = sr.FireProb
				wp.QuakeProb = sr.QuakeProb
				wp.Matched = true
				continue
			}

			nearest, dist, ok := registry.Nearest(wp.Lat, wp.Lon)
			if !ok || dist > matchRadiusKM {
				continue
			}
			if sr, found := byName[strings.ToLower(nearest.Name)]; found {
				wp.FireProb = sr.FireProb
				wp.QuakeProb = sr.QuakeProb
				wp.Matched = true
			}
		}
	}
}

// LegDistances returns the distance in kilometers of each leg between
// consecutive waypoints. A route with fewer than two waypoints has none.
func LegDistances(r Route) []float64 {
	if len(r.Waypoints) < 2 {
		return nil
	}
	legs := make([]float64, len(r.Waypoints)-1)
	for i := 1; i < len(r.Waypoints); i++ {
		a, b := r.Waypoints[i-1], r.Waypoints[i]
		legs[i-1] = geomath.DistanceKM(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return legs
}

// Summary is the accumulated risk profile of one route. Points carries the
// per-waypoint view, each with its individual probabilities and the running
// accumulated risk up to that point.
type Summary struct {
	RouteID        string     `json:"route_id"`
	TotalKM        float64    `json:"total_km"`
	Waypoints      int        `json:"waypoints"`
	MatchedPoints  int        `json:"matched_points"`
	FireRisk       float64    `json:"fire_risk"`
	QuakeRisk      float64    `json:"quake_risk"`
	CombinedRisk   float64    `json:"combined_risk"`
	MaxPointRisk   float64    `json:"max_point_risk"`
	DominantHazard string     `json:"dominant_hazard"`
	Level          risk.Level `json:"level"`
	Points         []Waypoint `json:"points"`
}

// Accumulate folds waypoint probabilities along the route. Exposure
// compounds: traversing two risky points is riskier than either alone, so
// each hazard accumulates as the probability of at least one event across
// all waypoints, and every waypoint carries the running accumulated risk of
// the route so far. Unmatched waypoints contribute nothing and inherit the
// running value.
func Accumulate(r Route) Summary {
	s := Summary{RouteID: r.ID, Waypoints: len(r.Waypoints)}

	fireProbs := make([]float64, 0, len(r.Waypoints))
	quakeProbs := make([]float64, 0, len(r.Waypoints))
	var running float64
	points := make([]Waypoint, len(r.Waypoints))
	for i, wp := range r.Waypoints {
		var point float64
		if wp.Matched {
			s.MatchedPoints++
			fireProbs = append(fireProbs, wp.FireProb)
			quakeProbs = append(quakeProbs, wp.QuakeProb)

			point = risk.Combine([]float64{wp.FireProb, wp.QuakeProb})
			if point > s.MaxPointRisk {
				s.MaxPointRisk = point
			}
		}

		running = 1 - (1-running)*(1-point)
		wp.AccumulatedRisk = running
		points[i] = wp
	}
	s.Points = points

	s.FireRisk = risk.Combine(fireProbs)
	s.QuakeRisk = risk.Combine(quakeProbs)
	s.CombinedRisk = risk.Combine([]float64{s.FireRisk, s.QuakeRisk})
	s.Level = risk.LevelOf(s.CombinedRisk)

	if s.FireRisk > s.QuakeRisk {
		s.DominantHazard = "fire"
	} else {
		s.DominantHazard = "quake"
	}

	for _, leg := range LegDistances(r) {
		s.TotalKM += leg
	}
	return s
}
