package model_selection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/core/parallel"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/metrics"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// Params is one hyperparameter assignment.
type Params map[string]int

// String renders params with sorted keys, e.g. "max_depth=5 n_estimators=100".
func (p Params) String() string {
	keys := p.keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, p[k])
	}
	return strings.Join(parts, " ")
}

func (p Params) keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParamGrid maps each hyperparameter to the values to try.
type ParamGrid map[string][]int

// Candidates expands the grid into its cartesian product. Keys are iterated
// in sorted order, the last key varying fastest.
func (g ParamGrid) Candidates() []Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []Params{{}}
	for _, k := range keys {
		var next []Params
		for _, base := range out {
			for _, v := range g[k] {
				p := make(Params, len(base)+1)
				for bk, bv := range base {
					p[bk] = bv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		out = next
	}
	if len(out) == 1 && len(out[0]) == 0 {
		return nil
	}
	return out
}

// EstimatorFactory builds an unfitted regressor for params.
type EstimatorFactory func(params Params) (model.Regressor, error)

// CVResults is the per-candidate cross-validation table. Scores are negated
// MSE so that higher is better and rank 1 is the best candidate.
type CVResults struct {
	Params      []Params
	SplitScores [][]float64
	MeanScore   []float64
	StdScore    []float64
	Rank        []int
	MeanFitTime []float64
}

// Frame renders the results in the column layout of scikit-learn's cv_results_.
func (r *CVResults) Frame() (*dataset.Frame, error) {
	n := len(r.Params)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "CVResults.Frame")
	}

	paramStr := make([]string, n)
	for i, p := range r.Params {
		paramStr[i] = p.String()
	}
	cols := []*dataset.Column{
		dataset.NewFloatColumn("mean_fit_time", r.MeanFitTime),
	}
	for _, k := range r.Params[0].keys() {
		v := make([]float64, n)
		for i, p := range r.Params {
			v[i] = float64(p[k])
		}
		cols = append(cols, dataset.NewFloatColumn("param_"+k, v))
	}
	cols = append(cols, dataset.NewStringColumn("params", paramStr, nil))
	for s := range r.SplitScores[0] {
		v := make([]float64, n)
		for i := range r.SplitScores {
			v[i] = r.SplitScores[i][s]
		}
		cols = append(cols, dataset.NewFloatColumn(fmt.Sprintf("split%d_test_score", s), v))
	}
	rank := make([]float64, n)
	for i, rk := range r.Rank {
		rank[i] = float64(rk)
	}
	cols = append(cols,
		dataset.NewFloatColumn("mean_test_score", r.MeanScore),
		dataset.NewFloatColumn("std_test_score", r.StdScore),
		dataset.NewFloatColumn("rank_test_score", rank),
	)
	return dataset.New(cols...)
}

// GridSearchCV evaluates every candidate of Grid with k-fold CV, selects the
// candidate with the lowest mean MSE, and refits it on the full data.
type GridSearchCV struct {
	Factory EstimatorFactory
	Grid    ParamGrid
	CV      *KFold
	// NJobs caps concurrently evaluated candidates; <= 0 uses every CPU.
	NJobs int

	BestParams    Params
	BestIndex     int
	BestScore     float64
	BestEstimator model.Regressor
	Results       *CVResults
}

// NewGridSearchCV creates a grid search over grid using cv.
func NewGridSearchCV(factory EstimatorFactory, grid ParamGrid, cv *KFold) *GridSearchCV {
	return &GridSearchCV{Factory: factory, Grid: grid, CV: cv}
}

// Fit runs the search. Any candidate failure, including a panic, aborts the
// search and leaves BestEstimator nil.
func (g *GridSearchCV) Fit(X mat.Matrix, y []float64) error {
	g.BestEstimator = nil
	rows, _ := X.Dims()
	if rows != len(y) {
		return errors.NewDimensionError("GridSearchCV.Fit", rows, len(y), 0)
	}
	candidates := g.Grid.Candidates()
	if len(candidates) == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "empty parameter grid")
	}
	folds, err := g.CV.Split(rows)
	if err != nil {
		return err
	}

	res := &CVResults{
		Params:      candidates,
		SplitScores: make([][]float64, len(candidates)),
		MeanScore:   make([]float64, len(candidates)),
		StdScore:    make([]float64, len(candidates)),
		MeanFitTime: make([]float64, len(candidates)),
	}

	err = parallel.ForEach(len(candidates), g.NJobs, func(c int) (err error) {
		defer errors.Recover(&err, "GridSearchCV.Fit")

		scores := make([]float64, len(folds))
		var fitTime time.Duration
		for k, fold := range folds {
			est, err := g.Factory(candidates[c])
			if err != nil {
				return errors.Wrapf(err, "candidate %s", candidates[c])
			}
			trainX, trainY := extractSubset(X, y, fold.TrainIndices)
			testX, testY := extractSubset(X, y, fold.TestIndices)

			start := time.Now()
			if err := est.Fit(trainX, trainY); err != nil {
				return errors.Wrapf(err, "candidate %s fold %d", candidates[c], k)
			}
			fitTime += time.Since(start)

			pred, err := est.Predict(testX)
			if err != nil {
				return errors.Wrapf(err, "candidate %s fold %d", candidates[c], k)
			}
			mse, err := metrics.MSE(testY.RawVector().Data, mat.Col(nil, 0, pred))
			if err != nil {
				return errors.Wrapf(err, "candidate %s fold %d", candidates[c], k)
			}
			scores[k] = -mse
		}

		res.SplitScores[c] = scores
		res.MeanScore[c], res.StdScore[c] = stat.PopMeanStdDev(scores, nil)
		res.MeanFitTime[c] = fitTime.Seconds() / float64(len(folds))
		return nil
	})
	if err != nil {
		return err
	}

	res.Rank = rankDescending(res.MeanScore)
	best := 0
	for i := range res.Rank {
		if res.Rank[i] < res.Rank[best] {
			best = i
		}
	}

	est, err := g.Factory(candidates[best])
	if err != nil {
		return errors.Wrap(err, "GridSearchCV refit")
	}
	if err := errors.SafeExecute("GridSearchCV refit", func() error {
		return est.Fit(X, mat.NewVecDense(len(y), append([]float64(nil), y...)))
	}); err != nil {
		return err
	}

	g.Results = res
	g.BestIndex = best
	g.BestParams = candidates[best]
	g.BestScore = res.MeanScore[best]
	g.BestEstimator = est
	return nil
}

// rankDescending ranks scores with the "min" tie method: equal scores share
// the lowest rank, and rank 1 is the highest score.
func rankDescending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	rank := make([]int, len(scores))
	for pos, idx := range order {
		if pos > 0 && scores[idx] == scores[order[pos-1]] {
			rank[idx] = rank[order[pos-1]]
			continue
		}
		rank[idx] = pos + 1
	}
	return rank
}
