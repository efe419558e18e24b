package dataset

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WriteCSV writes the dataset with a fixed column layout: identifying
// columns first, then the feature columns in schema order, then the label
// and its metadata columns.
func WriteCSV(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"site", "lat", "lon", "target"}, ds.FeatureNames...)
	header = append(header,
		"label",
		"label_meta_events",
		"label_meta_max_severity",
		"label_meta_avg_severity",
		"label_window_start",
		"label_window_end",
	)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "dataset: write header to %s", path)
	}

	for _, s := range ds.Samples {
		row := make([]string, 0, len(header))
		row = append(row,
			s.Site,
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
			s.Target.UTC().Format(time.RFC3339),
		)
		for _, v := range s.Features.Ordered(ds.FeatureNames) {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		row = append(row,
			strconv.Itoa(s.Label),
			strconv.Itoa(s.Meta.Events),
			strconv.FormatFloat(s.Meta.MaxSeverity, 'f', -1, 64),
			strconv.FormatFloat(s.Meta.AvgSeverity, 'f', -1, 64),
			s.Meta.Window.Start.UTC().Format(time.RFC3339),
			s.Meta.Window.End.UTC().Format(time.RFC3339),
		)
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write row to %s", path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "dataset: flush %s", path)
	}

	zap.L().Info("wrote dataset", zap.String("path", path), zap.Int("rows", len(ds.Samples)))
	return nil
}
