package dataset

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ChronologicalSplit puts samples targeted before splitDate into train and
// the rest into test. This is the honest evaluation for forecasting: the
// test set lies entirely in the train set's future.
func ChronologicalSplit(ds *Dataset, splitDate time.Time) (train, test *Dataset) {
	train = &Dataset{Hazard: ds.Hazard, FeatureNames: ds.FeatureNames}
	test = &Dataset{Hazard: ds.Hazard, FeatureNames: ds.FeatureNames}

	for _, s := range ds.Samples {
		if s.Target.Before(splitDate) {
			train.Samples = append(train.Samples, s)
		} else {
			test.Samples = append(test.Samples, s)
		}
	}
	sortByTarget(train.Samples)
	sortByTarget(test.Samples)

	zap.L().Info("chronological split",
		zap.String("hazard", ds.Hazard),
		zap.Time("split_date", splitDate),
		zap.Int("train", len(train.Samples)),
		zap.Int("test", len(test.Samples)))
	return train, test
}

// StratifiedSplit shuffles positives and negatives separately with the
// seeded source and holds out testFraction of each class, preserving the
// label balance on both sides.
func StratifiedSplit(ds *Dataset, testFraction float64, seed int64) (train, test *Dataset) {
	var pos, neg []Sample
	for _, s := range ds.Samples {
		if s.Label == 1 {
			pos = append(pos, s)
		} else {
			neg = append(neg, s)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	train = &Dataset{Hazard: ds.Hazard, FeatureNames: ds.FeatureNames}
	test = &Dataset{Hazard: ds.Hazard, FeatureNames: ds.FeatureNames}

	posCut := int(float64(len(pos)) * testFraction)
	negCut := int(float64(len(neg)) * testFraction)
	test.Samples = append(test.Samples, pos[:posCut]...)
	test.Samples = append(test.Samples, neg[:negCut]...)
	train.Samples = append(train.Samples, pos[posCut:]...)
	train.Samples = append(train.Samples, neg[negCut:]...)

	sortByTarget(train.Samples)
	sortByTarget(test.Samples)

	zap.L().Info("stratified split",
		zap.String("hazard", ds.Hazard),
		zap.Float64("test_fraction", testFraction),
		zap.Int64("seed", seed),
		zap.Int("train", len(train.Samples)),
		zap.Int("test", len(test.Samples)),
		zap.Int("train_positives", train.Positives()),
		zap.Int("test_positives", test.Positives()))
	return train, test
}
