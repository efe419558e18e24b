// Package site holds the fixed-site registry: named locations that get
// scored, loaded once and never mutated.
package site

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/riskradar/riskradar/internal/geomath"
)

// Site is an immutable reference location.
type Site struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Registry is a read-only collection of sites.
type Registry struct {
	sites []Site
}

// NewRegistry builds a registry from the given sites.
func NewRegistry(sites []Site) *Registry {
	copied := make([]Site, len(sites))
	copy(copied, sites)
	return &Registry{sites: copied}
}

// Sites returns all registered sites. The returned slice must not be mutated.
func (r *Registry) Sites() []Site { return r.sites }

// Len returns the number of registered sites.
func (r *Registry) Len() int { return len(r.sites) }

// ByName returns the site with the given name, case-insensitively.
func (r *Registry) ByName(name string) (Site, bool) {
	for _, s := range r.sites {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Site{}, false
}

// Nearest returns the registered site closest to the given point and its
// distance in kilometers. The second return is false for an empty registry.
func (r *Registry) Nearest(lat, lon float64) (Site, float64, bool) {
	if len(r.sites) == 0 {
		return Site{}, 0, false
	}

	best := r.sites[0]
	bestDist := math.Inf(1)
	for _, s := range r.sites {
		if d := geomath.DistanceKM(lat, lon, s.Lat, s.Lon); d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best, bestDist, true
}

// Load reads a site registry from a CSV or XLSX file, keyed on extension.
// A malformed registry is a configuration error and fatal.
func Load(path string) (*Registry, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return LoadCSV(path)
}

// LoadCSV reads sites from a CSV with columns name, lat, lon.
func LoadCSV(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: open registry %s", path)
	}
	defer f.Close()

	sites, err := parseCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "site: parse registry %s", path)
	}

	zap.L().Info("loaded site registry", zap.String("path", path), zap.Int("sites", len(sites)))
	return NewRegistry(sites), nil
}

func parseCSV(r io.Reader) ([]Site, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	nameIdx, latIdx, lonIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameIdx = i
		case "lat", "latitude":
			latIdx = i
		case "lon", "lng", "longitude":
			lonIdx = i
		}
	}
	if nameIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, eris.New("registry requires name, lat, lon columns")
	}

	var sites []Site
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read line %d", line)
		}

		s, err := buildSite(rec[nameIdx], rec[latIdx], rec[lonIdx])
		if err != nil {
			return nil, eris.Wrapf(err, "line %d", line)
		}
		sites = append(sites, s)
	}

	if len(sites) == 0 {
		return nil, eris.New("registry is empty")
	}
	return sites, nil
}

// LoadXLSX reads sites from the first sheet of an XLSX workbook laid out as
// name, lat, lon with a header row.
func LoadXLSX(path string) (*Registry, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: open workbook %s", path)
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.Errorf("site: workbook %s has no sheets", path)
	}

	sheet := wb.Sheets[0]
	var sites []Site
	for i, row := range sheet.Rows {
		if i == 0 || len(row.Cells) < 3 {
			continue
		}
		s, err := buildSite(row.Cells[0].String(), row.Cells[1].String(), row.Cells[2].String())
		if err != nil {
			return nil, eris.Wrapf(err, "site: row %d in %s", i+1, path)
		}
		sites = append(sites, s)
	}

	if len(sites) == 0 {
		return nil, eris.Errorf("site: workbook %s yields no sites", path)
	}

	zap.L().Info("loaded site registry", zap.String("path", path), zap.Int("sites", len(sites)))
	return NewRegistry(sites), nil
}

func buildSite(name, latStr, lonStr string) (Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Site{}, eris.New("empty site name")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Site{}, eris.Wrapf(err, "parse lat for %s", name)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Site{}, eris.Wrapf(err, "parse lon for %s", name)
	}
	if !geomath.ValidCoordinates(lat, lon) {
		return Site{}, eris.Errorf("coordinates out of range for %s: %f, %f", name, lat, lon)
	}
	return Site{Name: name, Lat: lat, Lon: lon}, nil
}
