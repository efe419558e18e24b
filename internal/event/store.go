// Package event holds the read-only FIRMS and USGS event collections and
// their window/radius query primitives. Stores are immutable once built:
// dataset assembly shares them across workers without locking.
package event

import (
	"sort"
	"time"

	"github.com/riskradar/riskradar/internal/geomath"
	"github.com/riskradar/riskradar/internal/timewin"
)

// Fire is a single FIRMS thermal-anomaly detection.
type Fire struct {
	Time       time.Time
	Lat        float64
	Lon        float64
	Confidence float64
	Brightness float64
	FRP        float64
	DayNight   string // "D", "N", or empty when the source lacks the column
}

// Quake is a single USGS catalog event.
type Quake struct {
	Time      time.Time
	Lat       float64
	Lon       float64
	Magnitude float64
	Place     string
}

// FireStore is an immutable, time-sorted collection of fire detections.
type FireStore struct {
	events []Fire
}

// NewFireStore copies and time-sorts the given detections.
func NewFireStore(events []Fire) *FireStore {
	sorted := make([]Fire, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	return &FireStore{events: sorted}
}

// Len returns the number of detections.
func (s *FireStore) Len() int { return len(s.events) }

// Within returns the detections whose timestamp falls in the half-open
// window, located by binary search over the sorted slice. The returned
// slice aliases the store and must not be mutated.
func (s *FireStore) Within(w timewin.Window) []Fire {
	lo := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Time.Before(w.Start)
	})
	hi := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Time.Before(w.End)
	})
	return s.events[lo:hi]
}

// QuakeStore is an immutable, time-sorted collection of seismic events.
type QuakeStore struct {
	events []Quake
}

// NewQuakeStore copies and time-sorts the given events.
func NewQuakeStore(events []Quake) *QuakeStore {
	sorted := make([]Quake, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	return &QuakeStore{events: sorted}
}

// Len returns the number of events.
func (s *QuakeStore) Len() int { return len(s.events) }

// Within returns the events whose timestamp falls in the half-open window.
// The returned slice aliases the store and must not be mutated.
func (s *QuakeStore) Within(w timewin.Window) []Quake {
	lo := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Time.Before(w.Start)
	})
	hi := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Time.Before(w.End)
	})
	return s.events[lo:hi]
}

// FilterFireRadius keeps detections strictly closer than radiusKM to the
// reference point. Distances are computed in one vectorized pass.
func FilterFireRadius(events []Fire, lat, lon, radiusKM float64) []Fire {
	if len(events) == 0 {
		return nil
	}
	lats := make([]float64, len(events))
	lons := make([]float64, len(events))
	for i, e := range events {
		lats[i] = e.Lat
		lons[i] = e.Lon
	}
	dists := geomath.BatchDistanceKM(lat, lon, lats, lons)

	var kept []Fire
	for i, d := range dists {
		if d < radiusKM {
			kept = append(kept, events[i])
		}
	}
	return kept
}

// FilterQuakeRadius keeps events strictly closer than radiusKM to the
// reference point.
func FilterQuakeRadius(events []Quake, lat, lon, radiusKM float64) []Quake {
	if len(events) == 0 {
		return nil
	}
	lats := make([]float64, len(events))
	lons := make([]float64, len(events))
	for i, e := range events {
		lats[i] = e.Lat
		lons[i] = e.Lon
	}
	dists := geomath.BatchDistanceKM(lat, lon, lats, lons)

	var kept []Quake
	for i, d := range dists {
		if d < radiusKM {
			kept = append(kept, events[i])
		}
	}
	return kept
}
