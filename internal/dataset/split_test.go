package dataset

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticDataset(n, positives int) *Dataset {
	ds := &Dataset{Hazard: "fire", FeatureNames: []string{"f"}}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		lbl := 0
		if i < positives {
			lbl = 1
		}
		ds.Samples = append(ds.Samples, Sample{
			Site:   fmt.Sprintf("site-%03d", i),
			Target: base.AddDate(0, 0, i),
			Label:  lbl,
		})
	}
	return ds
}

func TestChronologicalSplit(t *testing.T) {
	ds := syntheticDataset(100, 10)
	splitDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	train, test := ChronologicalSplit(ds, splitDate)
	assert.Equal(t, 100, len(train.Samples)+len(test.Samples))

	for _, s := range train.Samples {
		assert.True(t, s.Target.Before(splitDate))
	}
	for _, s := range test.Samples {
		assert.False(t, s.Target.Before(splitDate))
	}

	// A sample exactly on the split date lands in test.
	require.NotEmpty(t, test.Samples)
	assert.True(t, test.Samples[0].Target.Equal(splitDate))
}

func TestChronologicalSplitOrdering(t *testing.T) {
	ds := syntheticDataset(50, 5)
	// Scramble the input order.
	ds.Samples[0], ds.Samples[40] = ds.Samples[40], ds.Samples[0]

	train, _ := ChronologicalSplit(ds, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	for i := 1; i < len(train.Samples); i++ {
		assert.False(t, train.Samples[i].Target.Before(train.Samples[i-1].Target))
	}
}

func TestStratifiedSplitPreservesBalance(t *testing.T) {
	ds := syntheticDataset(200, 40)

	train, test := StratifiedSplit(ds, 0.20, 42)
	assert.Equal(t, 200, len(train.Samples)+len(test.Samples))

	// Exactly 20% of each class held out.
	assert.Equal(t, 8, test.Positives())
	assert.Equal(t, 40, len(test.Samples))
	assert.Equal(t, 32, train.Positives())
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	ds := syntheticDataset(100, 20)

	_, test1 := StratifiedSplit(ds, 0.25, 42)
	_, test2 := StratifiedSplit(ds, 0.25, 42)

	require.Len(t, test2.Samples, len(test1.Samples))
	for i := range test1.Samples {
		assert.Equal(t, test1.Samples[i].Site, test2.Samples[i].Site)
	}
}

func TestStratifiedSplitSeedChangesSelection(t *testing.T) {
	ds := syntheticDataset(100, 20)

	_, a := StratifiedSplit(ds, 0.25, 1)
	_, b := StratifiedSplit(ds, 0.25, 2)

	same := true
	for i := range a.Samples {
		if a.Samples[i].Site != b.Samples[i].Site {
			same = false
			break
		}
	}
	assert.False(t, same, "different seeds should select different holdouts")
}

func TestStratifiedSplitNoPositives(t *testing.T) {
	ds := syntheticDataset(50, 0)
	train, test := StratifiedSplit(ds, 0.20, 42)
	assert.Equal(t, 40, len(train.Samples))
	assert.Equal(t, 10, len(test.Samples))
	assert.Zero(t, test.Positives())
}
