package cleaning

import (
	"math"

	"github.com/YuminosukeSato/rentprice/dataset"
)

// groupMean accumulates per-key means over present values.
type groupMean[K comparable] struct {
	sum   map[K]float64
	count map[K]int
}

func newGroupMean[K comparable]() *groupMean[K] {
	return &groupMean[K]{sum: make(map[K]float64), count: make(map[K]int)}
}

func (g *groupMean[K]) add(k K, v float64) {
	if math.IsNaN(v) {
		return
	}
	g.sum[k] += v
	g.count[k]++
}

func (g *groupMean[K]) mean(k K) (float64, bool) {
	n := g.count[k]
	if n == 0 {
		return 0, false
	}
	return g.sum[k] / float64(n), true
}

// observedRange returns the min and max of the present values.
func observedRange(v []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		ok = true
	}
	return lo, hi, ok
}

// impute fills missing bedrooms and bathrooms. Both are first filled with the
// mean of their floor(square_feet/100) bucket. Remaining bathrooms take the
// mean bathrooms of rows with the same bedroom count, rounded half to even
// and kept inside the observed range.
func impute(f *dataset.Frame, rep *Report) error {
	sqft, err := f.Floats(ColSquareFeet)
	if err != nil {
		return err
	}
	beds, err := f.Floats(ColBedrooms)
	if err != nil {
		return err
	}
	baths, err := f.Floats(ColBathrooms)
	if err != nil {
		return err
	}
	bathLo, bathHi, bathObserved := observedRange(baths)

	bedBucket := newGroupMean[int]()
	bathBucket := newGroupMean[int]()
	bucket := make([]int, len(sqft))
	for i, s := range sqft {
		if math.IsNaN(s) {
			bucket[i] = math.MinInt
			continue
		}
		bucket[i] = int(math.Floor(s / 100))
		bedBucket.add(bucket[i], beds[i])
		bathBucket.add(bucket[i], baths[i])
	}

	for i := range sqft {
		if bucket[i] == math.MinInt {
			continue
		}
		if math.IsNaN(beds[i]) {
			if m, ok := bedBucket.mean(bucket[i]); ok {
				beds[i] = m
				rep.ImputedBedrooms++
			}
		}
		if math.IsNaN(baths[i]) {
			if m, ok := bathBucket.mean(bucket[i]); ok {
				baths[i] = m
				rep.ImputedBathrooms++
			}
		}
	}

	if !bathObserved {
		return nil
	}
	byBeds := newGroupMean[float64]()
	for i, b := range beds {
		if !math.IsNaN(b) {
			byBeds.add(b, baths[i])
		}
	}
	for i, b := range baths {
		if !math.IsNaN(b) || math.IsNaN(beds[i]) {
			continue
		}
		if m, ok := byBeds.mean(beds[i]); ok {
			baths[i] = math.Min(math.Max(math.RoundToEven(m), bathLo), bathHi)
			rep.ImputedBathrooms++
		}
	}
	return nil
}
