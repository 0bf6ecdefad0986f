package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OwnerKind はメディア・ドキュメントを所有するエンティティの種類。
type OwnerKind string

const (
	OwnerCompany OwnerKind = "companies"
	OwnerProject OwnerKind = "projects"
	OwnerUser    OwnerKind = "users"
)

// Media は所有エンティティに紐づく画像・動画などのメディア。
// 所有者列は種類ごとに異なり、該当する1つだけが埋まる。
type Media struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   *string   `db:"company_id" json:"company_id,omitempty"`
	ProjectID   *string   `db:"project_id" json:"project_id,omitempty"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Kind        *string   `db:"kind" json:"kind"`
	AssetURL    *string   `db:"asset_url" json:"asset_url"`
	S3Key       *string   `db:"s3_key" json:"s3_key"`
	ContentType *string   `db:"content_type" json:"content_type"`
	SHA256      *string   `db:"sha256" json:"sha256"`
	Metadata    Metadata  `db:"metadata" json:"metadata"`
	IsCover     *bool     `db:"is_cover" json:"is_cover,omitempty"`
	IsAvatar    *bool     `db:"is_avatar" json:"is_avatar,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NewMedia はメディア作成入力。
type NewMedia struct {
	Kind        *string
	AssetURL    *string
	S3Key       *string
	ContentType *string
	SHA256      *string
	Metadata    Metadata
	Flagged     bool // カバー（企業・プロジェクト）またはアバター（ユーザー）として登録する
}

// Document は所有エンティティに紐づく非公開ドキュメント（PDD、監査報告など）。
// 一覧ではSignedURLに期限付きの読み取りURLが入る。
type Document struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   *string   `db:"company_id" json:"company_id,omitempty"`
	ProjectID   *string   `db:"project_id" json:"project_id,omitempty"`
	DocType     string    `db:"doc_type" json:"doc_type"`
	Title       *string   `db:"title" json:"title"`
	AssetURL    *string   `db:"asset_url" json:"asset_url"`
	S3Key       *string   `db:"s3_key" json:"s3_key"`
	ContentType *string   `db:"content_type" json:"content_type"`
	SHA256      *string   `db:"sha256" json:"sha256"`
	Metadata    Metadata  `db:"metadata" json:"metadata"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	SignedURL   *string   `db:"-" json:"signed_url"`
}

// NewDocument はドキュメント作成入力。
type NewDocument struct {
	DocType     string
	Title       *string
	AssetURL    string
	S3Key       string
	ContentType *string
	SHA256      *string
	Metadata    Metadata
}

// RemovedAsset は削除済み行が参照していたオブジェクトの位置。
type RemovedAsset struct {
	AssetURL *string `db:"asset_url"`
	S3Key    *string `db:"s3_key"`
}

// Metadata はjsonb列に保存する任意のJSONオブジェクト。
// 空の場合は{}として扱う。
type Metadata json.RawMessage

// Scan はsql.Scannerを実装する。ドライバのバッファを共有しないようコピーする。
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
	case []byte:
		*m = append((*m)[:0], v...)
	case string:
		*m = Metadata(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return nil
}

// Value はdriver.Valuerを実装する。
func (m Metadata) Value() (driver.Value, error) {
	if len(bytes.TrimSpace(m)) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null")) {
		return "{}", nil
	}
	return string(m), nil
}

// MarshalJSON はjson.Marshalerを実装する。
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return m, nil
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = append((*m)[:0], data...)
	return nil
}
