// Package forecast scores current risk for every registered site using
// trained model coefficients and forecast weather.
package forecast

import (
	"encoding/json"
	"math"
	"os"

	"github.com/rotisserie/eris"

	"github.com/riskradar/riskradar/internal/featureset"
)

// Scorer produces an event probability from a feature vector.
type Scorer interface {
	Score(v featureset.Vector) float64
}

// LogisticScorer applies logistic-regression coefficients exported as JSON
// by the training side.
type LogisticScorer struct {
	intercept    float64
	coefficients map[string]float64
}

type modelFile struct {
	Hazard       string             `json:"hazard"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// LoadLogistic reads a coefficient file and validates it against the
// expected feature columns. A coefficient for an unknown column means the
// model was trained against a different schema, which is fatal: scoring
// would silently drop the column.
func LoadLogistic(path string, featureNames []string) (*LogisticScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "forecast: read model %s", path)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, eris.Wrapf(err, "forecast: parse model %s", path)
	}
	if len(mf.Coefficients) == 0 {
		return nil, eris.Errorf("forecast: model %s has no coefficients", path)
	}

	known := make(map[string]struct{}, len(featureNames))
	for _, n := range featureNames {
		known[n] = struct{}{}
	}
	for name := range mf.Coefficients {
		if _, ok := known[name]; !ok {
			return nil, eris.Errorf("forecast: model %s has coefficient for unknown feature %s", path, name)
		}
	}

	return &LogisticScorer{intercept: mf.Intercept, coefficients: mf.Coefficients}, nil
}

// Score evaluates the logistic model on the vector. Features without a
// coefficient contribute nothing.
func (s *LogisticScorer) Score(v featureset.Vector) float64 {
	z := s.intercept
	for name, coef := range s.coefficients {
		z += coef * v[name]
	}
	return 1 / (1 + math.Exp(-z))
}
