// Package metrics は回帰モデルの評価指標を提供する。
//
// すべての関数は実測値と予測値のスライスを受け取り、NaN/Inf を含む入力には
// NumericalInstabilityError を返す。呼び出し側は指標ごとに独立して失敗を扱える。
package metrics

import (
	"math"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 指標名。Evaluator の出力キーと metrics.yaml のキーに使う。
const (
	NameMAE  = "MAE"
	NameMSE  = "MSE"
	NameRMSE = "RMSE"
	NameR2   = "R2"
)

// Func は回帰指標の共通シグネチャ
type Func func(yTrue, yPred []float64) (float64, error)

// Regression は Evaluator が計算する指標を出力順に並べたもの
var Regression = []struct {
	Name string
	Fn   Func
}{
	{NameMAE, MAE},
	{NameMSE, MSE},
	{NameRMSE, RMSE},
	{NameR2, R2Score},
}

// checkPair は長さと数値安定性を検証する
func checkPair(op string, yTrue, yPred []float64) error {
	n := len(yTrue)
	if n == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != n {
		return errors.NewDimensionError(op, n, len(yPred), 0)
	}
	if err := errors.CheckNumericalStability(op+"/y_true", yTrue); err != nil {
		return err
	}
	return errors.CheckNumericalStability(op+"/y_pred", yPred)
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "RMSE")
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2", yTrue, yPred); err != nil {
		return 0, err
	}

	yMean := stat.Mean(yTrue, nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i, y := range yTrue {
		tss += (y - yMean) * (y - yMean)
		rss += (y - yPred[i]) * (y - yPred[i])
	}

	// すべての yTrue が同じ値の場合は定義できない
	if tss == 0 {
		return 0, errors.NewValueError("R2", "total sum of squares is zero (no variance in y_true)")
	}

	return 1 - rss/tss, nil
}
