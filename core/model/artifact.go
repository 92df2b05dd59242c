package model

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

const (
	// ArtifactFormat は永続化ファイルの先頭に書かれるフォーマットタグ
	ArtifactFormat = "rentprice/artifact"

	// SchemaVersion はペイロード構造のバージョン。構造を変えたら上げる
	SchemaVersion = 1
)

// Encoding はペイロードのエンコード方式
type Encoding string

const (
	// EncodingGob はGo専用のバイナリ形式
	EncodingGob Encoding = "gob"
	// EncodingJSON は他言語からも読めるJSON形式
	EncodingJSON Encoding = "json"
)

// Ext はアーティファクトのファイル拡張子を返す
func (e Encoding) Ext() string {
	if e == EncodingJSON {
		return "json"
	}
	return "gob"
}

// ArtifactHeader はアーティファクトの1行目に書かれるJSONヘッダ
type ArtifactHeader struct {
	// Format は常に ArtifactFormat
	Format string `json:"format"`

	// SchemaVersion はペイロード構造のバージョン（互換性チェック用）
	SchemaVersion int `json:"schema_version"`

	// Kind はペイロードの種類（RandomForestRegressor, OneHotEncoder等）
	Kind string `json:"kind"`

	// Encoding はペイロードのエンコード方式
	Encoding Encoding `json:"encoding"`

	// CreatedAt は保存時刻
	CreatedAt time.Time `json:"created_at"`

	// Metadata は追加のメタデータ（run_id、選択されたハイパーパラメータ等）
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate はヘッダの妥当性を検証する
func (h *ArtifactHeader) Validate(kind string) error {
	if h.Format != ArtifactFormat {
		return errors.NewValidationError("format", "unknown artifact format", h.Format)
	}
	if h.SchemaVersion != SchemaVersion {
		return errors.NewValidationError("schema_version", "unsupported schema version", h.SchemaVersion)
	}
	if kind != "" && h.Kind != kind {
		return errors.NewValidationError("kind", "artifact kind mismatch (want "+kind+")", h.Kind)
	}
	if h.Encoding != EncodingGob && h.Encoding != EncodingJSON {
		return errors.NewValidationError("encoding", "unknown payload encoding", h.Encoding)
	}
	return nil
}

// SaveArtifact はヘッダとペイロードをWriterに書き込む
//
// パラメータ:
//   - w: 保存先のWriter
//   - kind: ペイロードの種類
//   - enc: ペイロードのエンコード方式
//   - v: 保存するモデル（ポインタ）
//   - metadata: ヘッダに含める追加情報
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.SaveArtifact(&buf, "RandomForestRegressor", model.EncodingGob, rf, nil)
func SaveArtifact(w io.Writer, kind string, enc Encoding, v interface{}, metadata map[string]string) error {
	if enc == "" {
		enc = EncodingGob
	}
	header := ArtifactHeader{
		Format:        ArtifactFormat,
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		Encoding:      enc,
		CreatedAt:     time.Now().UTC(),
		Metadata:      metadata,
	}
	if err := header.Validate(kind); err != nil {
		return err
	}

	line, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to encode artifact header")
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "failed to write artifact header")
	}

	switch enc {
	case EncodingJSON:
		if err := json.NewEncoder(w).Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode model")
		}
	default:
		if err := gob.NewEncoder(w).Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode model")
		}
	}
	return nil
}

// LoadArtifact はReaderからヘッダを検証した上でペイロードを読み込む
//
// パラメータ:
//   - r: 読み込み元のReader
//   - kind: 期待するペイロードの種類（空文字なら検証しない）
//   - v: 読み込み先（ポインタ）
func LoadArtifact(r io.Reader, kind string, v interface{}) (*ArtifactHeader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, "failed to read artifact header")
	}

	var header ArtifactHeader
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, errors.Wrap(err, "failed to decode artifact header")
	}
	if err := header.Validate(kind); err != nil {
		return nil, err
	}

	switch header.Encoding {
	case EncodingJSON:
		err = json.NewDecoder(br).Decode(v)
	default:
		err = gob.NewDecoder(br).Decode(v)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	return &header, nil
}

// MarshalArtifact はSaveArtifactの結果をバイト列で返す
func MarshalArtifact(kind string, enc Encoding, v interface{}, metadata map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveArtifact(&buf, kind, enc, v, metadata); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalArtifact はバイト列からアーティファクトを読み込む
func UnmarshalArtifact(data []byte, kind string, v interface{}) (*ArtifactHeader, error) {
	return LoadArtifact(bytes.NewReader(data), kind, v)
}
