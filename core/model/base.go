package model

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
// gobでの永続化のためフィールドは公開している
type BaseEstimator struct {
	State EstimatorState

	// FeatureNamesIn は学習時に使われた特徴量の列名（順序付き）
	FeatureNamesIn []string
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
	e.FeatureNamesIn = nil
}

// SetFeatureNames は学習時の特徴量名を記録する
func (e *BaseEstimator) SetFeatureNames(names []string) {
	e.FeatureNamesIn = append([]string(nil), names...)
}

// FeatureNames は学習時の特徴量名のコピーを返す
func (e *BaseEstimator) FeatureNames() []string {
	return append([]string(nil), e.FeatureNamesIn...)
}
