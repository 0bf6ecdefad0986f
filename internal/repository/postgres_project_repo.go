package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// projectColumnNames はSELECT/RETURNINGで返すプロジェクトの全列。
var projectColumnNames = func() []string {
	cols := []string{"id", "owner_user_id"}
	for _, spec := range model.ProjectColumns {
		cols = append(cols, spec.Name)
	}
	return append(cols, "created_at", "updated_at", "delete_flag")
}()

const projectTotalsColumns = `
	COALESCE(v.to_date_issued, 0)::text AS to_date_issued,
	COALESCE(v.to_date_offtake, 0)::text AS to_date_offtake,
	COALESCE(v.to_date_retired, 0)::text AS to_date_retired`

const projectCoverLateral = `
	LEFT JOIN LATERAL (
		SELECT pm.id AS cover_media_id,
		       pm.asset_url AS cover_asset_url,
		       pm.content_type AS cover_content_type,
		       pm.s3_key AS cover_s3_key
		FROM project_media pm
		WHERE pm.project_id = p.id
		  AND ((pm.asset_url IS NOT NULL AND pm.asset_url <> '') OR (pm.s3_key IS NOT NULL AND pm.s3_key <> ''))
		ORDER BY pm.is_cover DESC, pm.created_at DESC
		LIMIT 1
	) pmc ON true`

const creditEventColumns = `id, project_id, event_type, quantity::text AS quantity, event_date, registry_tx_id, notes, created_at`

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sqlx.DB
}

var _ ProjectRepository = (*PostgresProjectRepo)(nil)

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sqlx.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// List は未削除のプロジェクトを返す。
func (r *PostgresProjectRepo) List(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) ([]model.ProjectListItem, int, error) {
	f := NewFilter("p.delete_flag = false").
		Eq("p.owner_user_id", filter.OwnerUserID).
		ILike(filter.Q, "p.name", "p.description").
		Eq("p.project_type", filter.ProjectType).
		Eq("p.status", filter.Status).
		Eq("p.sector", filter.Sector).
		Eq("p.host_country", filter.HostCountry).
		Eq("p.company_id", filter.CompanyID)

	orderBy := "p.created_at DESC"
	if filter.OwnerUserID != "" {
		orderBy = "p.name ASC"
	}

	limit, pageArgs := f.Paged(page)
	listSQL := `SELECT ` + prefixed("p", projectColumnNames) + `,` + projectTotalsColumns + `,
		pmc.cover_media_id, pmc.cover_asset_url, pmc.cover_content_type, pmc.cover_s3_key
		FROM projects p
		LEFT JOIN v_project_credit_totals v ON v.project_id = p.id` + projectCoverLateral + `
		` + f.Where() + `
		ORDER BY ` + orderBy + `
		` + limit
	countSQL := `SELECT COUNT(*) FROM projects p ` + f.Where()

	var (
		items []model.ProjectListItem
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &items, listSQL, pageArgs...); err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.GetContext(gctx, &total, countSQL, f.Args()...); err != nil {
			return fmt.Errorf("failed to count projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []model.ProjectListItem{}
	}
	return items, total, nil
}

// FindDetail は未削除のプロジェクトを累計とドキュメント数付きで取得する。
func (r *PostgresProjectRepo) FindDetail(ctx context.Context, id string) (*model.ProjectDetail, error) {
	var d model.ProjectDetail
	err := r.db.GetContext(ctx, &d,
		`SELECT `+prefixed("p", projectColumnNames)+`,`+projectTotalsColumns+`,
			(SELECT COUNT(*)::int FROM project_documents d WHERE d.project_id = p.id) AS document_count
		 FROM projects p
		 LEFT JOIN v_project_credit_totals v ON v.project_id = p.id
		 WHERE p.id = $1 AND p.delete_flag = false`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return &d, nil
}

// Create は指定列と所有者でプロジェクトを作成する。列名は model.ProjectColumns 由来のものに限る。
func (r *PostgresProjectRepo) Create(ctx context.Context, ownerUserID string, fields []model.FieldValue) (*model.Project, error) {
	cols := make([]string, 0, len(fields)+1)
	placeholders := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for i, fv := range fields {
		cols = append(cols, fv.Column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, fv.Value)
	}
	cols = append(cols, "owner_user_id")
	args = append(args, ownerUserID)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))

	var p model.Project
	err := r.db.GetContext(ctx, &p,
		fmt.Sprintf(`INSERT INTO projects (%s) VALUES (%s) RETURNING %s`,
			strings.Join(cols, ", "), strings.Join(placeholders, ", "), joinColumns(projectColumnNames)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return &p, nil
}

// UpdateOwned は所有者本人の未削除プロジェクトだけを更新する。
func (r *PostgresProjectRepo) UpdateOwned(ctx context.Context, id, ownerUserID string, fields []model.FieldValue) (*model.Project, error) {
	set, args := buildSet(fields)
	args = append(args, id, ownerUserID)

	var p model.Project
	err := r.db.GetContext(ctx, &p,
		fmt.Sprintf(`UPDATE projects SET %s, updated_at = now()
			WHERE id = $%d AND owner_user_id = $%d AND delete_flag = false
			RETURNING %s`,
			set, len(args)-1, len(args), joinColumns(projectColumnNames)),
		args...,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return &p, nil
}

// SoftDelete はプロジェクトを論理削除する。
func (r *PostgresProjectRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	return softDelete(ctx, r.db, "projects", id)
}

// CreditTotals はプロジェクトの累計を返す。
func (r *PostgresProjectRepo) CreditTotals(ctx context.Context, projectID string) (*model.ProjectCreditTotals, error) {
	t := model.ProjectCreditTotals{
		ProjectID:    projectID,
		CreditTotals: model.CreditTotals{ToDateIssued: "0", ToDateOfftake: "0", ToDateRetired: "0"},
	}
	err := r.db.GetContext(ctx, &t,
		`SELECT project_id,
			to_date_issued::text AS to_date_issued,
			to_date_offtake::text AS to_date_offtake,
			to_date_retired::text AS to_date_retired
		 FROM v_project_credit_totals
		 WHERE project_id = $1`,
		projectID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit totals: %w", err)
	}
	return &t, nil
}

// ListCreditEvents はイベントを発生日の新しい順に返す。
func (r *PostgresProjectRepo) ListCreditEvents(ctx context.Context, projectID string) ([]model.CreditEvent, error) {
	events := []model.CreditEvent{}
	err := r.db.SelectContext(ctx, &events,
		`SELECT `+creditEventColumns+`
		 FROM credit_events
		 WHERE project_id = $1
		 ORDER BY event_date DESC, created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit events: %w", err)
	}
	return events, nil
}

// CreateCreditEvent はイベントを追記する。
func (r *PostgresProjectRepo) CreateCreditEvent(ctx context.Context, projectID string, in model.NewCreditEvent) (*model.CreditEvent, error) {
	var ev model.CreditEvent
	err := r.db.GetContext(ctx, &ev,
		`INSERT INTO credit_events (project_id, event_type, quantity, event_date, registry_tx_id, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+creditEventColumns,
		projectID, in.EventType, in.Quantity, in.EventDate, in.RegistryTxID, in.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert credit event: %w", err)
	}
	return &ev, nil
}
