package model

import (
	"time"
)

// Project はカーボンクレジット創出プロジェクトを表す。
type Project struct {
	ID                       string    `db:"id" json:"id"`
	CompanyID                *string   `db:"company_id" json:"company_id"`
	OwnerUserID              *string   `db:"owner_user_id" json:"owner_user_id"`
	Name                     string    `db:"name" json:"name"`
	ProjectType              string    `db:"project_type" json:"project_type"`
	Sector                   *string   `db:"sector" json:"sector"`
	HostCountry              *string   `db:"host_country" json:"host_country"`
	HostRegion               *string   `db:"host_region" json:"host_region"`
	PDDStatus                *string   `db:"pdd_status" json:"pdd_status"`
	AuditStatus              *string   `db:"audit_status" json:"audit_status"`
	InceptionDate            *Date     `db:"inception_date" json:"inception_date"`
	CreditIssuanceDate       *Date     `db:"credit_issuance_date" json:"credit_issuance_date"`
	RegistryDate             *Date     `db:"registry_date" json:"registry_date"`
	RegistrationDateExpected *Date     `db:"registration_date_expected" json:"registration_date_expected"`
	RegistrationDateActual   *Date     `db:"registration_date_actual" json:"registration_date_actual"`
	ImplementationStart      *Date     `db:"implementation_start" json:"implementation_start"`
	ImplementationEnd        *Date     `db:"implementation_end" json:"implementation_end"`
	CreditingStart           *Date     `db:"crediting_start" json:"crediting_start"`
	CreditingEnd             *Date     `db:"crediting_end" json:"crediting_end"`
	Status                   *string   `db:"status" json:"status"`
	RegistryProjectURL       *string   `db:"registry_project_url" json:"registry_project_url"`
	RegistrationPlatform     *string   `db:"registration_platform" json:"registration_platform"`
	MethodologyID            *string   `db:"methodology_id" json:"methodology_id"`
	MethodologyVersion       *string   `db:"methodology_version" json:"methodology_version"`
	MethodologyNotes         *string   `db:"methodology_notes" json:"methodology_notes"`
	TenureText               *string   `db:"tenure_text" json:"tenure_text"`
	CompletionDate           *Date     `db:"completion_date" json:"completion_date"`
	ProjectMethodologyDocURL *string   `db:"project_methodology_doc_url" json:"project_methodology_doc_url"`
	ExpectedAnnualReductions *string   `db:"expected_annual_reductions" json:"expected_annual_reductions"`
	VolumeOfferedAuthority   *string   `db:"volume_offered_authority" json:"volume_offered_authority"`
	TendererRole             *string   `db:"tenderer_role" json:"tenderer_role"`
	Description              *string   `db:"description" json:"description"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
	DeleteFlag               bool      `db:"delete_flag" json:"delete_flag"`
}

// ProjectListItem は一覧表示用に累計と代表メディアを結合したプロジェクト。
type ProjectListItem struct {
	Project
	CreditTotals
	CoverMedia
}

// ProjectDetail は累計とドキュメント数を結合したプロジェクト詳細。
type ProjectDetail struct {
	Project
	CreditTotals
	DocumentCount int `db:"document_count" json:"document_count"`
}

// ProjectFilter はプロジェクト一覧の検索条件。
type ProjectFilter struct {
	Q           string
	ProjectType string
	Status      string
	Sector      string
	HostCountry string
	CompanyID   string
	OwnerUserID string
}

// ProjectColumns は作成・更新で受け付けるプロジェクト列。
// この順序でINSERT/UPDATE文の列が並ぶ。
var ProjectColumns = []ColumnSpec{
	{Name: "company_id", Kind: KindUUID},
	{Name: "name", Kind: KindText, Required: true},
	{Name: "project_type", Kind: KindText, Required: true},
	{Name: "sector", Kind: KindText},
	{Name: "host_country", Kind: KindText},
	{Name: "host_region", Kind: KindText},
	{Name: "pdd_status", Kind: KindText},
	{Name: "audit_status", Kind: KindText},
	{Name: "inception_date", Kind: KindDate},
	{Name: "credit_issuance_date", Kind: KindDate},
	{Name: "registry_date", Kind: KindDate},
	{Name: "registration_date_expected", Kind: KindDate},
	{Name: "registration_date_actual", Kind: KindDate},
	{Name: "implementation_start", Kind: KindDate},
	{Name: "implementation_end", Kind: KindDate},
	{Name: "crediting_start", Kind: KindDate},
	{Name: "crediting_end", Kind: KindDate},
	{Name: "status", Kind: KindText},
	{Name: "registry_project_url", Kind: KindText},
	{Name: "registration_platform", Kind: KindText},
	{Name: "methodology_id", Kind: KindText},
	{Name: "methodology_version", Kind: KindText},
	{Name: "methodology_notes", Kind: KindText},
	{Name: "tenure_text", Kind: KindText},
	{Name: "completion_date", Kind: KindDate},
	{Name: "project_methodology_doc_url", Kind: KindText},
	{Name: "expected_annual_reductions", Kind: KindNumeric},
	{Name: "volume_offered_authority", Kind: KindNumeric},
	{Name: "tenderer_role", Kind: KindText},
	{Name: "description", Kind: KindText},
}

// クレジットイベント種別
const (
	CreditEventIssuance   = "issuance"
	CreditEventOfftake    = "offtake"
	CreditEventRetirement = "retirement"
)

// IsValidCreditEventType はイベント種別が既知の値かどうかを返す。
func IsValidCreditEventType(t string) bool {
	switch t {
	case CreditEventIssuance, CreditEventOfftake, CreditEventRetirement:
		return true
	default:
		return false
	}
}

// CreditEvent はプロジェクトのクレジット発行・引取・償却の記録。追記のみ。
type CreditEvent struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	EventType    string    `db:"event_type" json:"event_type"`
	Quantity     string    `db:"quantity" json:"quantity"`
	EventDate    Date      `db:"event_date" json:"event_date"`
	RegistryTxID *string   `db:"registry_tx_id" json:"registry_tx_id"`
	Notes        *string   `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NewCreditEvent はクレジットイベント作成入力。
type NewCreditEvent struct {
	EventType    string
	Quantity     string
	EventDate    string
	RegistryTxID *string
	Notes        *string
}

// ProjectCreditTotals はプロジェクト単位の累計。
type ProjectCreditTotals struct {
	ProjectID string `db:"project_id" json:"project_id"`
	CreditTotals
}

// ProjectCredits はGET /projects/{id}/creditsの応答。
type ProjectCredits struct {
	Totals ProjectCreditTotals `json:"totals"`
	Events []CreditEvent       `json:"events"`
}
