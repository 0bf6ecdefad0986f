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

var companyColumnNames = []string{
	"id", "legal_name", "function_description", "geographical_coverage", "company_email",
	"website_url", "phone_number", "registration_url", "employees_count", "business_function",
	"owner_user_id", "created_at", "updated_at", "delete_flag",
}

// 企業の代表メディア。asset_urlかs3_keyのあるものから、カバー優先で最新の1件。
const companyCoverLateral = `
	LEFT JOIN LATERAL (
		SELECT cm.id AS cover_media_id,
		       cm.asset_url AS cover_asset_url,
		       cm.content_type AS cover_content_type,
		       cm.s3_key AS cover_s3_key
		FROM company_media cm
		WHERE cm.company_id = c.id
		  AND ((cm.asset_url IS NOT NULL AND cm.asset_url <> '') OR (cm.s3_key IS NOT NULL AND cm.s3_key <> ''))
		ORDER BY cm.is_cover DESC, cm.created_at DESC
		LIMIT 1
	) cmc ON true`

// PostgresCompanyRepo はPostgreSQLを使用した企業リポジトリ。
type PostgresCompanyRepo struct {
	db *sqlx.DB
}

var _ CompanyRepository = (*PostgresCompanyRepo)(nil)

// NewPostgresCompanyRepo はPostgresCompanyRepoを生成する。
func NewPostgresCompanyRepo(db *sqlx.DB) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: db}
}

// List は未削除の企業を返す。
func (r *PostgresCompanyRepo) List(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) ([]model.CompanyListItem, int, error) {
	f := NewFilter("c.delete_flag = false").
		Eq("c.owner_user_id", filter.OwnerUserID).
		ILike(filter.Q, "c.legal_name", "c.company_email")

	orderBy := "c.created_at DESC"
	if filter.OwnerUserID != "" {
		orderBy = "c.legal_name ASC"
	}

	limit, pageArgs := f.Paged(page)
	listSQL := `SELECT ` + prefixed("c", companyColumnNames) + `,
		cmc.cover_media_id, cmc.cover_asset_url, cmc.cover_content_type, cmc.cover_s3_key
		FROM companies c` + companyCoverLateral + `
		` + f.Where() + `
		ORDER BY ` + orderBy + `
		` + limit
	countSQL := `SELECT COUNT(*) FROM companies c ` + f.Where()

	var (
		items []model.CompanyListItem
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &items, listSQL, pageArgs...); err != nil {
			return fmt.Errorf("failed to list companies: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.GetContext(gctx, &total, countSQL, f.Args()...); err != nil {
			return fmt.Errorf("failed to count companies: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []model.CompanyListItem{}
	}
	return items, total, nil
}

// FindDetail は未削除の企業を累計クレジット付きで取得する。
func (r *PostgresCompanyRepo) FindDetail(ctx context.Context, id string) (*model.CompanyDetail, error) {
	var d model.CompanyDetail
	err := r.db.GetContext(ctx, &d,
		`SELECT `+prefixed("c", companyColumnNames)+`,
			COALESCE(t.to_date_issued, 0)::text AS to_date_issued,
			COALESCE(t.to_date_offtake, 0)::text AS to_date_offtake,
			COALESCE(t.to_date_retired, 0)::text AS to_date_retired
		 FROM companies c
		 LEFT JOIN v_company_credit_totals t ON t.company_id = c.id
		 WHERE c.id = $1 AND c.delete_flag = false`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	return &d, nil
}

// Create は企業を作成する。
func (r *PostgresCompanyRepo) Create(ctx context.Context, in model.NewCompany) (*model.Company, error) {
	var c model.Company
	err := r.db.GetContext(ctx, &c,
		`INSERT INTO companies (
			legal_name, function_description, geographical_coverage, company_email,
			website_url, phone_number, registration_url, employees_count,
			business_function, owner_user_id
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+joinColumns(companyColumnNames),
		in.LegalName, in.FunctionDescription, pq.StringArray(in.GeographicalCoverage), in.CompanyEmail,
		in.WebsiteURL, in.PhoneNumber, in.RegistrationURL, in.EmployeesCount,
		in.BusinessFunction, in.OwnerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company: %w", err)
	}
	return &c, nil
}

// Update は指定列を更新する。updated_atは常に現在時刻になる。
func (r *PostgresCompanyRepo) Update(ctx context.Context, id string, fields []model.FieldValue) (*model.Company, error) {
	set, args := buildSet(fields)
	args = append(args, id)

	var c model.Company
	err := r.db.GetContext(ctx, &c,
		fmt.Sprintf(`UPDATE companies SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
			set, len(args), joinColumns(companyColumnNames)),
		args...,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return &c, nil
}

// SoftDelete は企業を論理削除する。
func (r *PostgresCompanyRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	return softDelete(ctx, r.db, "companies", id)
}

// UpsertUser は所属リンクを作成または役職を更新する。
func (r *PostgresCompanyRepo) UpsertUser(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error) {
	var cu model.CompanyUser
	err := r.db.GetContext(ctx, &cu,
		`INSERT INTO company_users (company_id, user_id, role_title)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (company_id, user_id) DO UPDATE SET role_title = EXCLUDED.role_title
		 RETURNING company_id, user_id, role_title, created_at`,
		companyID, userID, roleTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company user: %w", err)
	}
	return &cu, nil
}

// ListUsers は所属リンクを古い順に返す。
func (r *PostgresCompanyRepo) ListUsers(ctx context.Context, companyID string) ([]model.CompanyUser, error) {
	items := []model.CompanyUser{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT company_id, user_id, role_title, created_at
		 FROM company_users
		 WHERE company_id = $1
		 ORDER BY created_at ASC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list company users: %w", err)
	}
	return items, nil
}

// RemoveUser は所属リンクを削除する。存在しなくてもエラーにしない。
func (r *PostgresCompanyRepo) RemoveUser(ctx context.Context, companyID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM company_users WHERE company_id = $1 AND user_id = $2`,
		companyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove company user: %w", err)
	}
	return nil
}

// HasUser は所属リンクが存在するかどうかを返す。
func (r *PostgresCompanyRepo) HasUser(ctx context.Context, companyID, userID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM company_users WHERE company_id = $1 AND user_id = $2)`,
		companyID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check company access: %w", err)
	}
	return ok, nil
}

// softDelete は未削除の行にdelete_flagを立てる。tableは呼び出し側の定数に限る。
func softDelete(ctx context.Context, db *sqlx.DB, table, id string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE `+table+` SET delete_flag = true, updated_at = now() WHERE id = $1 AND delete_flag = false`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}
