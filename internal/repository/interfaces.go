// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
// 見つからない場合の単一行取得はnilを返す。制約違反などのドライバエラーはラップして返し、
// 分類はサービス層が database.IsUniqueViolation などで行う。
package repository

import (
	"context"

	"github.com/hitoshi/carbonmarket/internal/model"
)

// UserRepository はログインユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail はメールアドレス（小文字化済み）でユーザーを取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByGoogleSub はGoogleのsubjectでユーザーを取得する。
	FindByGoogleSub(ctx context.Context, sub string) (*model.User, error)
	// Create はユーザーを作成し、採番済みの行を返す。
	Create(ctx context.Context, user *model.User) (*model.User, error)
	// LinkGoogle は既存ユーザーにGoogleのsubjectを紐付ける。名前とアバターは未設定の場合のみ埋める。
	LinkGoogle(ctx context.Context, id, sub string, name, avatarURL *string) (*model.User, error)
}

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// ListDirectory は公開かつ未削除のプロフィールを検索する。総件数も返す。
	ListDirectory(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) ([]model.DirectoryEntry, int, error)
	// FindPublicByUserID は公開かつ未削除のプロフィールを取得する。
	FindPublicByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
	// FindActiveByUserID は未削除のプロフィールを公開設定に関係なく取得する。
	FindActiveByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
	// Upsert はプロフィールを作成または更新し、論理削除済みなら復活させる。
	Upsert(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error)
	// SoftDelete はプロフィールを論理削除し非公開にする。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, userID string) (bool, error)
}

// CompanyRepository は企業と所属リンクの永続化インターフェース。
type CompanyRepository interface {
	// List は未削除の企業を代表メディア付きで返す。OwnerUserIDを指定した場合は名前順、それ以外は新しい順。
	List(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) ([]model.CompanyListItem, int, error)
	// FindDetail は未削除の企業を累計クレジット付きで取得する。
	FindDetail(ctx context.Context, id string) (*model.CompanyDetail, error)
	// Create は企業を作成する。
	Create(ctx context.Context, in model.NewCompany) (*model.Company, error)
	// Update は指定列だけを更新する。delete_flagも更新できるため論理削除済みの行も対象になる。
	Update(ctx context.Context, id string, fields []model.FieldValue) (*model.Company, error)
	// SoftDelete は企業を論理削除する。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, id string) (bool, error)

	// UpsertUser は所属リンクを作成し、既存なら役職を上書きする。
	UpsertUser(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error)
	// ListUsers は所属リンクを返す。企業の論理削除の影響を受けない。
	ListUsers(ctx context.Context, companyID string) ([]model.CompanyUser, error)
	// RemoveUser は所属リンクを削除する。
	RemoveUser(ctx context.Context, companyID, userID string) error
	// HasUser は所属リンクが存在するかどうかを返す。
	HasUser(ctx context.Context, companyID, userID string) (bool, error)
}

// ProjectRepository はプロジェクトとクレジットイベントの永続化インターフェース。
type ProjectRepository interface {
	// List は未削除のプロジェクトを累計・代表メディア付きで返す。OwnerUserIDを指定した場合は名前順。
	List(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) ([]model.ProjectListItem, int, error)
	// FindDetail は未削除のプロジェクトを累計とドキュメント数付きで取得する。
	FindDetail(ctx context.Context, id string) (*model.ProjectDetail, error)
	// Create は指定列と所有者でプロジェクトを作成する。
	Create(ctx context.Context, ownerUserID string, fields []model.FieldValue) (*model.Project, error)
	// UpdateOwned は所有者本人の未削除プロジェクトだけを更新する。該当しなければnilを返す。
	UpdateOwned(ctx context.Context, id, ownerUserID string, fields []model.FieldValue) (*model.Project, error)
	// SoftDelete はプロジェクトを論理削除する。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, id string) (bool, error)

	// CreditTotals はプロジェクトの累計を返す。イベントがなければ"0"で埋める。
	CreditTotals(ctx context.Context, projectID string) (*model.ProjectCreditTotals, error)
	// ListCreditEvents はイベントを発生日の新しい順に返す。
	ListCreditEvents(ctx context.Context, projectID string) ([]model.CreditEvent, error)
	// CreateCreditEvent はイベントを追記する。
	CreateCreditEvent(ctx context.Context, projectID string, in model.NewCreditEvent) (*model.CreditEvent, error)
}

// MediaRepository は企業・プロジェクト・ユーザーのメディアの永続化インターフェース。
type MediaRepository interface {
	// List はカバー（アバター）を先頭に、新しい順で返す。
	List(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error)
	// Create はメディアを登録する。Flaggedの場合は既存のカバーを同一トランザクションで外す。
	Create(ctx context.Context, owner model.OwnerKind, ownerID string, in model.NewMedia) (*model.Media, error)
	// SetFlag は対象をカバー（アバター）にし、他を外す。対象がなければnilを返し何も変更しない。
	SetFlag(ctx context.Context, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error)
	// Delete はメディア行を削除し、参照していたオブジェクトの位置を返す。対象がなければnil。
	Delete(ctx context.Context, owner model.OwnerKind, ownerID, mediaID string) (*model.RemovedAsset, error)
}

// DocumentRepository は企業・プロジェクトのドキュメントの永続化インターフェース。
type DocumentRepository interface {
	// List は新しい順に返す。docTypeが空でなければ種別で絞り込む。
	List(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error)
	// Create はドキュメントを登録する。
	Create(ctx context.Context, owner model.OwnerKind, ownerID string, in model.NewDocument) (*model.Document, error)
	// Delete はドキュメント行を削除し、参照していたオブジェクトの位置を返す。対象がなければnil。
	Delete(ctx context.Context, owner model.OwnerKind, ownerID, documentID string) (*model.RemovedAsset, error)
}
