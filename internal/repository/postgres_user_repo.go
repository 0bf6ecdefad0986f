package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password_hash, provider, google_sub, name, avatar_url, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

var _ UserRepository = (*PostgresUserRepo)(nil)

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail はメールアドレスでユーザーを取得する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByGoogleSub はGoogleのsubjectでユーザーを取得する。
func (r *PostgresUserRepo) FindByGoogleSub(ctx context.Context, sub string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_sub = $1`, sub)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// Create はユーザーを作成する。メールアドレスの一意制約違反はそのままラップして返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	provider := user.Provider
	if provider == "" {
		provider = model.ProviderLocal
	}

	var created model.User
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO users (email, password_hash, provider, google_sub, name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		user.Email, user.PasswordHash, provider, user.GoogleSub, user.Name, user.AvatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &created, nil
}

// LinkGoogle は既存ユーザーにGoogleのsubjectを紐付け、プロバイダをgoogleに切り替える。
func (r *PostgresUserRepo) LinkGoogle(ctx context.Context, id, sub string, name, avatarURL *string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		`UPDATE users
		 SET google_sub = $2,
		     provider = 'google',
		     name = COALESCE(name, $3),
		     avatar_url = COALESCE(avatar_url, $4),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, sub, name, avatarURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link google account: %w", err)
	}
	return &u, nil
}
