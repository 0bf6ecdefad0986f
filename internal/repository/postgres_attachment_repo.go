package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/jmoiron/sqlx"
)

// mediaTable は所有者の種類ごとのメディア表。
type mediaTable struct {
	name     string
	ownerCol string
	flagCol  string // is_cover または is_avatar
}

var mediaTables = map[model.OwnerKind]mediaTable{
	model.OwnerCompany: {name: "company_media", ownerCol: "company_id", flagCol: "is_cover"},
	model.OwnerProject: {name: "project_media", ownerCol: "project_id", flagCol: "is_cover"},
	model.OwnerUser:    {name: "user_media", ownerCol: "user_id", flagCol: "is_avatar"},
}

func (t mediaTable) columns() string {
	return "id, " + t.ownerCol + ", kind, asset_url, s3_key, content_type, sha256, metadata, " + t.flagCol + ", created_at"
}

// documentTable は所有者の種類ごとのドキュメント表。
type documentTable struct {
	name     string
	ownerCol string
}

var documentTables = map[model.OwnerKind]documentTable{
	model.OwnerCompany: {name: "company_documents", ownerCol: "company_id"},
	model.OwnerProject: {name: "project_documents", ownerCol: "project_id"},
}

func (t documentTable) columns() string {
	return "id, " + t.ownerCol + ", doc_type, title, asset_url, s3_key, content_type, sha256, metadata, created_at"
}

var errTargetNotFound = errors.New("target row not found")

// PostgresMediaRepo はPostgreSQLを使用したメディアリポジトリ。
// 3種類の所有者の表を同じ操作で扱う。
type PostgresMediaRepo struct {
	db *sqlx.DB
}

var _ MediaRepository = (*PostgresMediaRepo)(nil)

// NewPostgresMediaRepo はPostgresMediaRepoを生成する。
func NewPostgresMediaRepo(db *sqlx.DB) *PostgresMediaRepo {
	return &PostgresMediaRepo{db: db}
}

func lookupMedia(owner model.OwnerKind) (mediaTable, error) {
	t, ok := mediaTables[owner]
	if !ok {
		return mediaTable{}, fmt.Errorf("unsupported media owner: %q", owner)
	}
	return t, nil
}

// List はカバー（アバター）を先頭に、新しい順で返す。
func (r *PostgresMediaRepo) List(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error) {
	t, err := lookupMedia(owner)
	if err != nil {
		return nil, err
	}

	items := []model.Media{}
	err = r.db.SelectContext(ctx, &items,
		`SELECT `+t.columns()+` FROM `+t.name+`
		 WHERE `+t.ownerCol+` = $1
		 ORDER BY `+t.flagCol+` DESC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return items, nil
}

// Create はメディアを登録する。Flaggedの場合は既存のカバーを外してから挿入する。
func (r *PostgresMediaRepo) Create(ctx context.Context, owner model.OwnerKind, ownerID string, in model.NewMedia) (*model.Media, error) {
	t, err := lookupMedia(owner)
	if err != nil {
		return nil, err
	}

	var m model.Media
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if in.Flagged {
			if err := clearFlag(ctx, tx, t, ownerID, ""); err != nil {
				return err
			}
		}
		return sqlx.GetContext(ctx, tx, &m,
			`INSERT INTO `+t.name+` (`+t.ownerCol+`, kind, asset_url, s3_key, content_type, sha256, metadata, `+t.flagCol+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
			 RETURNING `+t.columns(),
			ownerID, in.Kind, in.AssetURL, in.S3Key, in.ContentType, in.SHA256, in.Metadata, in.Flagged,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", t.name, err)
	}
	return &m, nil
}

// SetFlag は対象をカバー（アバター）にする。
// 同時実行で二重にカバーが立つ場合は部分一意インデックスの違反としてエラーになる。
func (r *PostgresMediaRepo) SetFlag(ctx context.Context, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error) {
	t, err := lookupMedia(owner)
	if err != nil {
		return nil, err
	}

	var m model.Media
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := clearFlag(ctx, tx, t, ownerID, mediaID); err != nil {
			return err
		}
		err := sqlx.GetContext(ctx, tx, &m,
			`UPDATE `+t.name+` SET `+t.flagCol+` = true
			 WHERE id = $1 AND `+t.ownerCol+` = $2
			 RETURNING `+t.columns(),
			mediaID, ownerID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return errTargetNotFound
		}
		return err
	})
	if errors.Is(err, errTargetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set %s on %s: %w", t.flagCol, t.name, err)
	}
	return &m, nil
}

func clearFlag(ctx context.Context, tx *sqlx.Tx, t mediaTable, ownerID, exceptID string) error {
	query := `UPDATE ` + t.name + ` SET ` + t.flagCol + ` = false WHERE ` + t.ownerCol + ` = $1 AND ` + t.flagCol + ` = true`
	args := []any{ownerID}
	if exceptID != "" {
		query += ` AND id <> $2`
		args = append(args, exceptID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear %s: %w", t.flagCol, err)
	}
	return nil
}

// Delete はメディア行を削除する。
func (r *PostgresMediaRepo) Delete(ctx context.Context, owner model.OwnerKind, ownerID, mediaID string) (*model.RemovedAsset, error) {
	t, err := lookupMedia(owner)
	if err != nil {
		return nil, err
	}
	return deleteReturningAsset(ctx, r.db, t.name, t.ownerCol, ownerID, mediaID)
}

// PostgresDocumentRepo はPostgreSQLを使用したドキュメントリポジトリ。
type PostgresDocumentRepo struct {
	db *sqlx.DB
}

var _ DocumentRepository = (*PostgresDocumentRepo)(nil)

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
func NewPostgresDocumentRepo(db *sqlx.DB) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db}
}

func lookupDocument(owner model.OwnerKind) (documentTable, error) {
	t, ok := documentTables[owner]
	if !ok {
		return documentTable{}, fmt.Errorf("unsupported document owner: %q", owner)
	}
	return t, nil
}

// List は新しい順に返す。
func (r *PostgresDocumentRepo) List(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error) {
	t, err := lookupDocument(owner)
	if err != nil {
		return nil, err
	}

	f := NewFilter().Eq(t.ownerCol, ownerID).Eq("doc_type", docType)
	items := []model.Document{}
	err = r.db.SelectContext(ctx, &items,
		`SELECT `+t.columns()+` FROM `+t.name+` `+f.Where()+` ORDER BY created_at DESC`,
		f.Args()...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return items, nil
}

// Create はドキュメントを登録する。
func (r *PostgresDocumentRepo) Create(ctx context.Context, owner model.OwnerKind, ownerID string, in model.NewDocument) (*model.Document, error) {
	t, err := lookupDocument(owner)
	if err != nil {
		return nil, err
	}

	var d model.Document
	err = r.db.GetContext(ctx, &d,
		`INSERT INTO `+t.name+` (`+t.ownerCol+`, doc_type, title, asset_url, s3_key, content_type, sha256, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		 RETURNING `+t.columns(),
		ownerID, in.DocType, in.Title, in.AssetURL, in.S3Key, in.ContentType, in.SHA256, in.Metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", t.name, err)
	}
	return &d, nil
}

// Delete はドキュメント行を削除する。
func (r *PostgresDocumentRepo) Delete(ctx context.Context, owner model.OwnerKind, ownerID, documentID string) (*model.RemovedAsset, error) {
	t, err := lookupDocument(owner)
	if err != nil {
		return nil, err
	}
	return deleteReturningAsset(ctx, r.db, t.name, t.ownerCol, ownerID, documentID)
}

func deleteReturningAsset(ctx context.Context, db *sqlx.DB, table, ownerCol, ownerID, id string) (*model.RemovedAsset, error) {
	var removed model.RemovedAsset
	err := db.GetContext(ctx, &removed,
		`DELETE FROM `+table+` WHERE id = $1 AND `+ownerCol+` = $2 RETURNING asset_url, s3_key`,
		id, ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return &removed, nil
}
