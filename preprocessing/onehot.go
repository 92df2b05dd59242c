// Package preprocessing は特徴量の前処理を提供する。
package preprocessing

import (
	"slices"
	"sort"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// ArtifactKind は永続化エンベロープに記録される種別名
const ArtifactKind = "OneHotEncoder"

// UnknownCategory は未知・欠損カテゴリを受ける指示列の接尾辞
const UnknownCategory = "unknown"

// OneHotEncoder は宣言されたカテゴリ列を 0/1 の指示列に展開する
//
// 出力列名は "<列名>_<カテゴリ>" で、各列に "<列名>_unknown" が必ず追加される。
// 学習時に見ていないカテゴリと欠損値は unknown 列に割り当てられる。
// 語彙に "unknown" そのものが含まれる場合、unknown 列は "<列名>__unknown" のように
// 接頭辞 "_" を重ねて衝突しない名前になる。
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder([]string{"state", "has_photo"})
//	if err := enc.Fit(train); err != nil { ... }
//	encoded, err := enc.Transform(test)
type OneHotEncoder struct {
	model.BaseEstimator

	// Columns はエンコード対象の列名（宣言順）
	Columns []string

	// Categories は列ごとの語彙（辞書順）
	Categories [][]string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(columns []string) *OneHotEncoder {
	return &OneHotEncoder{Columns: append([]string(nil), columns...)}
}

// Fit は各カテゴリ列の語彙を学習する
func (e *OneHotEncoder) Fit(f *dataset.Frame) error {
	if f.Len() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(e.Columns) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "no categorical columns declared")
	}

	categories := make([][]string, len(e.Columns))
	for j, name := range e.Columns {
		col, err := stringColumn(f, "OneHotEncoder.Fit", name)
		if err != nil {
			return err
		}

		seen := make(map[string]bool)
		for i := 0; i < col.Len(); i++ {
			if v, ok := col.StringAt(i); ok {
				seen[v] = true
			}
		}
		vocab := make([]string, 0, len(seen))
		for v := range seen {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		categories[j] = vocab
	}

	e.Categories = categories
	e.SetFeatureNames(e.Columns)
	e.SetFitted()
	return nil
}

// FeatureNamesOut は Transform が生成する指示列の名前を返す
func (e *OneHotEncoder) FeatureNamesOut() ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "FeatureNamesOut")
	}
	var names []string
	for j, col := range e.Columns {
		for _, cat := range e.Categories[j] {
			names = append(names, col+"_"+cat)
		}
		names = append(names, e.bucketName(j))
	}
	return names, nil
}

// bucketName は列 j の unknown 列名を返す。学習済みカテゴリの列名とは重ならない
func (e *OneHotEncoder) bucketName(j int) string {
	suffix := UnknownCategory
	for slices.Contains(e.Categories[j], suffix) {
		suffix = "_" + suffix
	}
	return e.Columns[j] + "_" + suffix
}

// Transform はカテゴリ列を指示列に置き換えた新しいFrameを返す
//
// カテゴリ以外の列は共有される（コピーしない）。
func (e *OneHotEncoder) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	encoded := make(map[string]bool, len(e.Columns))
	for _, c := range e.Columns {
		encoded[c] = true
	}

	var cols []*dataset.Column
	for _, c := range f.Columns() {
		if !encoded[c.Name] {
			cols = append(cols, c)
		}
	}

	n := f.Len()
	for j, name := range e.Columns {
		col, err := stringColumn(f, "OneHotEncoder.Transform", name)
		if err != nil {
			return nil, err
		}

		vocab := e.Categories[j]
		index := make(map[string]int, len(vocab))
		indicators := make([][]float64, len(vocab)+1)
		for k, cat := range vocab {
			index[cat] = k
			indicators[k] = make([]float64, n)
		}
		unknown := len(vocab)
		indicators[unknown] = make([]float64, n)

		for i := 0; i < n; i++ {
			k := unknown
			if v, ok := col.StringAt(i); ok {
				if idx, known := index[v]; known {
					k = idx
				}
			}
			indicators[k][i] = 1
		}

		for k, cat := range vocab {
			cols = append(cols, dataset.NewFloatColumn(name+"_"+cat, indicators[k]))
		}
		cols = append(cols, dataset.NewFloatColumn(e.bucketName(j), indicators[unknown]))
	}

	out, err := dataset.New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "OneHotEncoder.Transform")
	}
	return out, nil
}

// FitTransform は学習と変換を一度に行う
func (e *OneHotEncoder) FitTransform(f *dataset.Frame) (*dataset.Frame, error) {
	if err := e.Fit(f); err != nil {
		return nil, err
	}
	return e.Transform(f)
}

// InverseTransform は指示列からカテゴリ列を復元する
//
// unknown 列が立っている行と、どの列も立っていない行は欠損になる。
func (e *OneHotEncoder) InverseTransform(f *dataset.Frame) (*dataset.Frame, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "InverseTransform")
	}

	n := f.Len()
	cols := make([]*dataset.Column, 0, len(e.Columns))
	for j, name := range e.Columns {
		values := make([]string, n)
		valid := make([]bool, n)
		for _, cat := range e.Categories[j] {
			ind, err := f.Floats(name + "_" + cat)
			if err != nil {
				return nil, err
			}
			for i, x := range ind {
				if x == 1 {
					values[i] = cat
					valid[i] = true
				}
			}
		}
		cols = append(cols, dataset.NewStringColumn(name, values, valid))
	}
	return dataset.New(cols...)
}

func stringColumn(f *dataset.Frame, op, name string) (*dataset.Column, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.String {
		// 全欠損の列は数値として読まれるため、文字列の欠損列として扱う
		if col.Kind == dataset.Float && col.NullCount() == col.Len() {
			return dataset.NullColumn(name, dataset.String, col.Len()), nil
		}
		return nil, errors.NewSchemaError(op, "categorical column must be string, got "+col.Kind.String(), name)
	}
	return col, nil
}
