package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

var profileColumnNames = []string{
	"id", "user_id", "full_name", "headline", "job_title", "company_id", "org_name",
	"country", "city", "timezone", "role_type",
	"expertise_tags", "service_offerings", "sectors", "standards", "languages",
	"personal_website", "linkedin_url", "portfolio_url", "contact_email", "phone_number",
	"is_public", "show_phone", "show_contact_email",
	"is_verified", "verification_level", "verification_notes", "bio",
	"created_at", "updated_at", "delete_flag",
}

var directoryColumnNames = []string{
	"id", "user_id", "full_name", "headline", "job_title", "company_id",
	"country", "city", "timezone", "role_type",
	"expertise_tags", "service_offerings", "sectors", "standards", "languages",
	"personal_website", "linkedin_url", "portfolio_url",
	"is_verified", "verification_level", "bio", "created_at", "updated_at",
}

// ユーザーごとの現在のアバター（最新の1件）
const avatarLateral = `
	LEFT JOIN LATERAL (
		SELECT um.id AS avatar_media_id,
		       um.asset_url AS avatar_asset_url,
		       um.content_type AS avatar_content_type,
		       um.s3_key AS avatar_s3_key
		FROM user_media um
		WHERE um.user_id = up.user_id AND um.is_avatar = true
		ORDER BY um.created_at DESC
		LIMIT 1
	) umc ON true`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sqlx.DB
}

var _ ProfileRepository = (*PostgresProfileRepo)(nil)

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sqlx.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// ListDirectory は公開ディレクトリを検証済み優先、更新の新しい順で返す。
// 一覧と件数は同じ条件で並行に取得する。
func (r *PostgresProfileRepo) ListDirectory(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) ([]model.DirectoryEntry, int, error) {
	f := NewFilter("up.delete_flag = false", "up.is_public = true").
		ILike(filter.Q, "up.full_name", "up.headline", "up.job_title", "up.org_name", "up.bio").
		Eq("up.country", filter.Country).
		Eq("up.role_type", filter.RoleType).
		Contains("up.expertise_tags", filter.ExpertiseTag).
		Contains("up.sectors", filter.Sector).
		Contains("up.standards", filter.Standard).
		Contains("up.languages", filter.Language)

	limit, pageArgs := f.Paged(page)
	listSQL := `SELECT ` + prefixed("up", directoryColumnNames) + `,
		COALESCE(c.legal_name, up.org_name) AS org_display_name,
		umc.avatar_media_id, umc.avatar_asset_url, umc.avatar_content_type, umc.avatar_s3_key
		FROM user_profiles up
		LEFT JOIN companies c ON c.id = up.company_id` + avatarLateral + `
		` + f.Where() + `
		ORDER BY up.is_verified DESC, up.updated_at DESC
		` + limit
	countSQL := `SELECT COUNT(*) FROM user_profiles up ` + f.Where()

	var (
		items []model.DirectoryEntry
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &items, listSQL, pageArgs...); err != nil {
			return fmt.Errorf("failed to list directory: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.GetContext(gctx, &total, countSQL, f.Args()...); err != nil {
			return fmt.Errorf("failed to count directory: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []model.DirectoryEntry{}
	}
	return items, total, nil
}

func (r *PostgresProfileRepo) findOne(ctx context.Context, where string, userID string) (*model.UserProfile, error) {
	query := `SELECT ` + prefixed("up", profileColumnNames) + `,
		c.legal_name AS company_legal_name,
		COALESCE(c.legal_name, up.org_name) AS org_display_name,
		umc.avatar_media_id, umc.avatar_asset_url, umc.avatar_content_type
		FROM user_profiles up
		LEFT JOIN companies c ON c.id = up.company_id` + avatarLateral + `
		WHERE ` + where + `
		LIMIT 1`

	var p model.UserProfile
	err := r.db.GetContext(ctx, &p, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &p, nil
}

// FindPublicByUserID は公開かつ未削除のプロフィールを取得する。連絡先のマスクは呼び出し側で行う。
func (r *PostgresProfileRepo) FindPublicByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	return r.findOne(ctx, "up.user_id = $1 AND up.delete_flag = false AND up.is_public = true", userID)
}

// FindActiveByUserID は未削除のプロフィールを取得する。
func (r *PostgresProfileRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	return r.findOne(ctx, "up.user_id = $1 AND up.delete_flag = false", userID)
}

// Upsert はプロフィールを作成または更新する。
// 未指定（nil）の項目は既存値を保持し、新規作成時は配列を空、is_publicをtrue、show_*をfalseとする。
// company_idだけは送信値で常に上書きする。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error) {
	query := `INSERT INTO user_profiles (
			user_id, full_name, headline, job_title, company_id, org_name,
			country, city, timezone, role_type,
			expertise_tags, service_offerings, sectors, standards, languages,
			personal_website, linkedin_url, portfolio_url, contact_email, phone_number,
			is_public, show_phone, show_contact_email, bio, updated_at, delete_flag
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			COALESCE($11::text[], '{}'::text[]),
			COALESCE($12::text[], '{}'::text[]),
			COALESCE($13::text[], '{}'::text[]),
			COALESCE($14::text[], '{}'::text[]),
			COALESCE($15::text[], '{}'::text[]),
			$16, $17, $18, $19, $20,
			COALESCE($21::boolean, true),
			COALESCE($22::boolean, false),
			COALESCE($23::boolean, false),
			$24, now(), false
		)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = COALESCE($2, user_profiles.full_name),
			headline = COALESCE($3, user_profiles.headline),
			job_title = COALESCE($4, user_profiles.job_title),
			company_id = EXCLUDED.company_id,
			org_name = COALESCE($6, user_profiles.org_name),
			country = COALESCE($7, user_profiles.country),
			city = COALESCE($8, user_profiles.city),
			timezone = COALESCE($9, user_profiles.timezone),
			role_type = COALESCE($10, user_profiles.role_type),
			expertise_tags = COALESCE($11::text[], user_profiles.expertise_tags),
			service_offerings = COALESCE($12::text[], user_profiles.service_offerings),
			sectors = COALESCE($13::text[], user_profiles.sectors),
			standards = COALESCE($14::text[], user_profiles.standards),
			languages = COALESCE($15::text[], user_profiles.languages),
			personal_website = COALESCE($16, user_profiles.personal_website),
			linkedin_url = COALESCE($17, user_profiles.linkedin_url),
			portfolio_url = COALESCE($18, user_profiles.portfolio_url),
			contact_email = COALESCE($19, user_profiles.contact_email),
			phone_number = COALESCE($20, user_profiles.phone_number),
			is_public = COALESCE($21::boolean, user_profiles.is_public),
			show_phone = COALESCE($22::boolean, user_profiles.show_phone),
			show_contact_email = COALESCE($23::boolean, user_profiles.show_contact_email),
			bio = COALESCE($24, user_profiles.bio),
			updated_at = now(),
			delete_flag = false
		RETURNING ` + joinColumns(profileColumnNames)

	var p model.UserProfile
	err := r.db.GetContext(ctx, &p, query,
		userID, in.FullName, in.Headline, in.JobTitle, in.CompanyID, in.OrgName,
		in.Country, in.City, in.Timezone, in.RoleType,
		nullableArray(in.ExpertiseTags), nullableArray(in.ServiceOfferings), nullableArray(in.Sectors),
		nullableArray(in.Standards), nullableArray(in.Languages),
		in.PersonalWebsite, in.LinkedinURL, in.PortfolioURL, in.ContactEmail, in.PhoneNumber,
		in.IsPublic, in.ShowPhone, in.ShowContactEmail, in.Bio,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return &p, nil
}

// SoftDelete はプロフィールを論理削除し、ディレクトリから外す。
func (r *PostgresProfileRepo) SoftDelete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles
		 SET delete_flag = true, is_public = false, updated_at = now()
		 WHERE user_id = $1 AND delete_flag = false`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// nullableArray はnilスライスをNULL、空スライスを'{}'として渡す。
func nullableArray(v []string) any {
	if v == nil {
		return nil
	}
	return pq.StringArray(v)
}
