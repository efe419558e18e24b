package event

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadFIRMS reads one or more FIRMS CSV exports (archive and NRT files use
// the same layout) and merges them into a single store. Missing files are
// skipped with a warning; it is fatal if none of the paths exist. Malformed
// rows are skipped and surfaced only as an aggregate warning count.
func LoadFIRMS(paths []string) (*FireStore, error) {
	log := zap.L().With(zap.String("component", "event.firms"))

	var all []Fire
	var loadedFiles int
	var badRows int

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn("FIRMS file not found, skipping", zap.String("path", path))
				continue
			}
			return nil, eris.Wrapf(err, "event: open FIRMS file %s", path)
		}

		events, bad, err := parseFIRMS(f)
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "event: parse FIRMS file %s", path)
		}

		log.Info("loaded FIRMS file",
			zap.String("path", path),
			zap.Int("detections", len(events)),
			zap.Int("skipped_rows", bad),
		)
		all = append(all, events...)
		badRows += bad
		loadedFiles++
	}

	if loadedFiles == 0 {
		return nil, eris.Errorf("event: no FIRMS data files found (tried %s)", strings.Join(paths, ", "))
	}

	log.Info("FIRMS load complete",
		zap.Int("files", loadedFiles),
		zap.Int("detections", len(all)),
		zap.Int("skipped_rows", badRows),
	)
	return NewFireStore(all), nil
}

// parseFIRMS reads a FIRMS CSV stream. Expected columns: latitude,
// longitude, acq_date, acq_time, confidence, brightness, frp, and an
// optional daynight flag. Acquisition timestamps are UTC.
func parseFIRMS(r io.Reader) ([]Fire, int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "read header")
	}
	col, err := indexColumns(header, []string{"latitude", "longitude", "acq_date", "acq_time", "confidence", "brightness", "frp"})
	if err != nil {
		return nil, 0, err
	}
	dayNightIdx := indexOf(header, "daynight")

	var events []Fire
	var badRows int

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badRows++
			continue
		}

		ts, tsErr := parseFIRMSTime(rec[col["acq_date"]], rec[col["acq_time"]])
		lat, latErr := strconv.ParseFloat(rec[col["latitude"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[col["longitude"]], 64)
		conf, confErr := strconv.ParseFloat(rec[col["confidence"]], 64)
		bright, brightErr := strconv.ParseFloat(rec[col["brightness"]], 64)
		frp, frpErr := strconv.ParseFloat(rec[col["frp"]], 64)
		if tsErr != nil || latErr != nil || lonErr != nil || confErr != nil || brightErr != nil || frpErr != nil {
			badRows++
			continue
		}

		e := Fire{
			Time:       ts,
			Lat:        lat,
			Lon:        lon,
			Confidence: conf,
			Brightness: bright,
			FRP:        frp,
		}
		if dayNightIdx >= 0 && dayNightIdx < len(rec) {
			e.DayNight = strings.TrimSpace(rec[dayNightIdx])
		}
		events = append(events, e)
	}

	return events, badRows, nil
}

// parseFIRMSTime combines the acq_date (2006-01-02) and acq_time (HHMM,
// possibly short) columns into a UTC timestamp.
func parseFIRMSTime(date, clock string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	clock = strings.TrimSpace(clock)
	if clock == "" {
		return d, nil
	}
	hhmm, err := strconv.Atoi(clock)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(hhmm/100)*time.Hour + time.Duration(hhmm%100)*time.Minute), nil
}

// LoadUSGS reads a USGS catalog CSV export. A missing file is fatal: quake
// labeling cannot degrade to an empty catalog silently.
func LoadUSGS(path string) (*QuakeStore, error) {
	log := zap.L().With(zap.String("component", "event.usgs"))

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "event: open USGS file %s", path)
	}
	defer f.Close()

	events, badRows, err := parseUSGS(f)
	if err != nil {
		return nil, eris.Wrapf(err, "event: parse USGS file %s", path)
	}

	log.Info("USGS load complete",
		zap.String("path", path),
		zap.Int("events", len(events)),
		zap.Int("skipped_rows", badRows),
	)
	return NewQuakeStore(events), nil
}

// parseUSGS reads a USGS CSV stream. Expected columns: time (RFC 3339),
// latitude, longitude, mag, and an optional place label. Rows without a
// parseable magnitude are dropped: a NaN severity contributes nothing.
func parseUSGS(r io.Reader) ([]Quake, int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "read header")
	}
	col, err := indexColumns(header, []string{"time", "latitude", "longitude", "mag"})
	if err != nil {
		return nil, 0, err
	}
	placeIdx := indexOf(header, "place")

	var events []Quake
	var badRows int

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badRows++
			continue
		}

		ts, tsErr := time.Parse(time.RFC3339, strings.TrimSpace(rec[col["time"]]))
		lat, latErr := strconv.ParseFloat(rec[col["latitude"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[col["longitude"]], 64)
		mag, magErr := strconv.ParseFloat(rec[col["mag"]], 64)
		if tsErr != nil || latErr != nil || lonErr != nil || magErr != nil {
			badRows++
			continue
		}

		e := Quake{
			Time:      ts.UTC(),
			Lat:       lat,
			Lon:       lon,
			Magnitude: mag,
		}
		if placeIdx >= 0 && placeIdx < len(rec) {
			e.Place = strings.TrimSpace(rec[placeIdx])
		}
		events = append(events, e)
	}

	return events, badRows, nil
}

// indexColumns maps required column names to their header positions.
func indexColumns(header, required []string) (map[string]int, error) {
	col := make(map[string]int, len(required))
	for _, name := range required {
		idx := indexOf(header, name)
		if idx < 0 {
			return nil, eris.Errorf("missing required column %q", name)
		}
		col[name] = idx
	}
	return col, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
