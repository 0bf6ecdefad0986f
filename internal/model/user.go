// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/lib/pq"
)

// 認証プロバイダ
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User はサービス利用ユーザー（ログイン主体）を表す。
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash *string   `db:"password_hash"`
	Provider     string    `db:"provider"`
	GoogleSub    *string   `db:"google_sub"`
	Name         *string   `db:"name"`
	AvatarURL    *string   `db:"avatar_url"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UserProfile はマーケットプレイス上の公開プロフィールを表す。
// 1ユーザーにつき最大1件。delete_flagで論理削除される。
type UserProfile struct {
	ID                string         `db:"id" json:"id"`
	UserID            string         `db:"user_id" json:"user_id"`
	FullName          *string        `db:"full_name" json:"full_name"`
	Headline          *string        `db:"headline" json:"headline"`
	JobTitle          *string        `db:"job_title" json:"job_title"`
	CompanyID         *string        `db:"company_id" json:"company_id"`
	OrgName           *string        `db:"org_name" json:"org_name"`
	Country           *string        `db:"country" json:"country"`
	City              *string        `db:"city" json:"city"`
	Timezone          *string        `db:"timezone" json:"timezone"`
	RoleType          *string        `db:"role_type" json:"role_type"`
	ExpertiseTags     pq.StringArray `db:"expertise_tags" json:"expertise_tags"`
	ServiceOfferings  pq.StringArray `db:"service_offerings" json:"service_offerings"`
	Sectors           pq.StringArray `db:"sectors" json:"sectors"`
	Standards         pq.StringArray `db:"standards" json:"standards"`
	Languages         pq.StringArray `db:"languages" json:"languages"`
	PersonalWebsite   *string        `db:"personal_website" json:"personal_website"`
	LinkedinURL       *string        `db:"linkedin_url" json:"linkedin_url"`
	PortfolioURL      *string        `db:"portfolio_url" json:"portfolio_url"`
	ContactEmail      *string        `db:"contact_email" json:"contact_email"`
	PhoneNumber       *string        `db:"phone_number" json:"phone_number"`
	IsPublic          bool           `db:"is_public" json:"is_public"`
	ShowPhone         bool           `db:"show_phone" json:"show_phone"`
	ShowContactEmail  bool           `db:"show_contact_email" json:"show_contact_email"`
	IsVerified        bool           `db:"is_verified" json:"is_verified"`
	VerificationLevel *string        `db:"verification_level" json:"verification_level"`
	VerificationNotes *string        `db:"verification_notes" json:"verification_notes"`
	Bio               *string        `db:"bio" json:"bio"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
	DeleteFlag        bool           `db:"delete_flag" json:"delete_flag"`

	// 結合列（読み取り時のみ）
	CompanyLegalName  *string `db:"company_legal_name" json:"company_legal_name,omitempty"`
	OrgDisplayName    *string `db:"org_display_name" json:"org_display_name"`
	AvatarMediaID     *string `db:"avatar_media_id" json:"avatar_media_id"`
	AvatarAssetURL    *string `db:"avatar_asset_url" json:"avatar_asset_url"`
	AvatarContentType *string `db:"avatar_content_type" json:"avatar_content_type"`
}

// MaskContact は公開設定に従って電話番号と連絡先メールを隠す。
// 公開プロフィールの読み取り時に適用する。
func (p *UserProfile) MaskContact() {
	if !p.ShowPhone {
		p.PhoneNumber = nil
	}
	if !p.ShowContactEmail {
		p.ContactEmail = nil
	}
}

// DirectoryEntry は公開ディレクトリ一覧の1行を表す。
// 連絡先情報は含めない。
type DirectoryEntry struct {
	ID                string         `db:"id" json:"id"`
	UserID            string         `db:"user_id" json:"user_id"`
	FullName          *string        `db:"full_name" json:"full_name"`
	Headline          *string        `db:"headline" json:"headline"`
	JobTitle          *string        `db:"job_title" json:"job_title"`
	CompanyID         *string        `db:"company_id" json:"company_id"`
	OrgDisplayName    *string        `db:"org_display_name" json:"org_display_name"`
	Country           *string        `db:"country" json:"country"`
	City              *string        `db:"city" json:"city"`
	Timezone          *string        `db:"timezone" json:"timezone"`
	RoleType          *string        `db:"role_type" json:"role_type"`
	ExpertiseTags     pq.StringArray `db:"expertise_tags" json:"expertise_tags"`
	ServiceOfferings  pq.StringArray `db:"service_offerings" json:"service_offerings"`
	Sectors           pq.StringArray `db:"sectors" json:"sectors"`
	Standards         pq.StringArray `db:"standards" json:"standards"`
	Languages         pq.StringArray `db:"languages" json:"languages"`
	PersonalWebsite   *string        `db:"personal_website" json:"personal_website"`
	LinkedinURL       *string        `db:"linkedin_url" json:"linkedin_url"`
	PortfolioURL      *string        `db:"portfolio_url" json:"portfolio_url"`
	IsVerified        bool           `db:"is_verified" json:"is_verified"`
	VerificationLevel *string        `db:"verification_level" json:"verification_level"`
	Bio               *string        `db:"bio" json:"bio"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
	AvatarMediaID     *string        `db:"avatar_media_id" json:"avatar_media_id"`
	AvatarAssetURL    *string        `db:"avatar_asset_url" json:"avatar_asset_url"`
	AvatarContentType *string        `db:"avatar_content_type" json:"avatar_content_type"`
	AvatarS3Key       *string        `db:"avatar_s3_key" json:"-"`
}

// DirectoryFilter は公開ディレクトリの検索条件。空文字列の条件は無視される。
type DirectoryFilter struct {
	Q            string
	Country      string
	RoleType     string
	ExpertiseTag string
	Sector       string
	Standard     string
	Language     string
}

// ProfileUpdate はプロフィールのupsert入力。
// nilのフィールドは既存値を保持する（新規作成時は既定値）。
// CompanyIDは例外で、送信値（nilを含む）で常に上書きされる。
type ProfileUpdate struct {
	FullName         *string
	Headline         *string
	JobTitle         *string
	CompanyID        *string
	OrgName          *string
	Country          *string
	City             *string
	Timezone         *string
	RoleType         *string
	ExpertiseTags    []string
	ServiceOfferings []string
	Sectors          []string
	Standards        []string
	Languages        []string
	PersonalWebsite  *string
	LinkedinURL      *string
	PortfolioURL     *string
	ContactEmail     *string
	PhoneNumber      *string
	IsPublic         *bool
	ShowPhone        *bool
	ShowContactEmail *bool
	Bio              *string
}
