package model

import (
	"time"

	"github.com/lib/pq"
)

// Company はマーケットプレイスに参加する組織を表す。
type Company struct {
	ID                   string         `db:"id" json:"id"`
	LegalName            string         `db:"legal_name" json:"legal_name"`
	FunctionDescription  *string        `db:"function_description" json:"function_description"`
	GeographicalCoverage pq.StringArray `db:"geographical_coverage" json:"geographical_coverage"`
	CompanyEmail         *string        `db:"company_email" json:"company_email"`
	WebsiteURL           *string        `db:"website_url" json:"website_url"`
	PhoneNumber          *string        `db:"phone_number" json:"phone_number"`
	RegistrationURL      *string        `db:"registration_url" json:"registration_url"`
	EmployeesCount       *int           `db:"employees_count" json:"employees_count"`
	BusinessFunction     string         `db:"business_function" json:"business_function"`
	OwnerUserID          *string        `db:"owner_user_id" json:"owner_user_id"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	DeleteFlag           bool           `db:"delete_flag" json:"delete_flag"`
}

// NewCompany は企業作成入力。
type NewCompany struct {
	LegalName            string
	FunctionDescription  *string
	GeographicalCoverage []string
	CompanyEmail         string
	WebsiteURL           *string
	PhoneNumber          *string
	RegistrationURL      *string
	EmployeesCount       *int
	BusinessFunction     string
	OwnerUserID          string
}

// CompanyListItem は一覧表示用に代表メディアを結合した企業。
type CompanyListItem struct {
	Company
	CoverMedia
}

// CompanyDetail は累計クレジット数を結合した企業詳細。
type CompanyDetail struct {
	Company
	CreditTotals
}

// CompanyFilter は企業一覧の検索条件。
type CompanyFilter struct {
	Q           string
	OwnerUserID string
}

// CompanyUser は企業とユーザーの所属リンクを表す。
type CompanyUser struct {
	CompanyID string    `db:"company_id" json:"company_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	RoleTitle *string   `db:"role_title" json:"role_title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoverMedia は一覧に結合する代表メディア（カバー、なければ最新）の列。
type CoverMedia struct {
	CoverMediaID     *string `db:"cover_media_id" json:"cover_media_id"`
	CoverAssetURL    *string `db:"cover_asset_url" json:"cover_asset_url"`
	CoverContentType *string `db:"cover_content_type" json:"cover_content_type"`
	CoverS3Key       *string `db:"cover_s3_key" json:"cover_s3_key"`
}

// CreditTotals はクレジットイベントの種別ごとの累計。
// numeric値を精度を落とさずに文字列で保持し、イベントがない場合は"0"となる。
type CreditTotals struct {
	ToDateIssued  string `db:"to_date_issued" json:"to_date_issued"`
	ToDateOfftake string `db:"to_date_offtake" json:"to_date_offtake"`
	ToDateRetired string `db:"to_date_retired" json:"to_date_retired"`
}
