// Package profile はユーザープロフィールと公開ディレクトリのドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/repository"
	"github.com/hitoshi/carbonmarket/internal/security"
)

// DefaultDirectoryPageSize はディレクトリ一覧の既定ページサイズ。
const DefaultDirectoryPageSize = 10

// Options はプロフィールサービスの設定。
type Options struct {
	// ResolveDirectoryAvatars がtrueの場合、ディレクトリのavatar_asset_urlを公開URLに変換する。
	// falseの場合は常にnullを返す。
	ResolveDirectoryAvatars bool
}

// Service はプロフィールのサービス層。
type Service struct {
	profiles  repository.ProfileRepository
	resolver  *asset.Resolver
	sanitizer security.TextSanitizer
	opts      Options
}

// NewService はServiceを生成する。
func NewService(profiles repository.ProfileRepository, resolver *asset.Resolver, sanitizer security.TextSanitizer, opts Options) *Service {
	return &Service{
		profiles:  profiles,
		resolver:  resolver,
		sanitizer: sanitizer,
		opts:      opts,
	}
}

// Directory は公開ディレクトリを検索する。
func (s *Service) Directory(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error) {
	items, total, err := s.profiles.ListDirectory(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの取得に失敗しました: %w", err)
	}

	for i := range items {
		if s.opts.ResolveDirectoryAvatars && items[i].AvatarMediaID != nil {
			items[i].AvatarAssetURL = s.resolver.ReconcilePtr(items[i].AvatarAssetURL, items[i].AvatarS3Key)
		} else {
			items[i].AvatarAssetURL = nil
		}
	}

	return &model.Page[model.DirectoryEntry]{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// PublicProfile は公開プロフィールを返す。連絡先は公開設定に従って隠す。
func (s *Service) PublicProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, err := s.profiles.FindPublicByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewNotFoundError(model.ErrCodeNotFound)
	}
	p.MaskContact()
	return p, nil
}

// MyProfile は本人のプロフィールを返す。未作成または削除済みの場合はnilを返す。
func (s *Service) MyProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, err := s.profiles.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return p, nil
}

// UpsertMyProfile は本人のプロフィールを作成または更新する。
// 自由記述欄（headline, bio）はタグを除去して保存する。
func (s *Service) UpsertMyProfile(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error) {
	in.Headline = security.SanitizePtr(s.sanitizer, in.Headline)
	in.Bio = security.SanitizePtr(s.sanitizer, in.Bio)

	p, err := s.profiles.Upsert(ctx, userID, in)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidReference, "company_id does not reference an existing company.")
		case database.IsInvalidInput(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidInputSyntax, "A field has an invalid format.")
		}
		return nil, fmt.Errorf("プロフィールの保存に失敗しました: %w", err)
	}
	return p, nil
}

// DeleteMyProfile は本人のプロフィールを論理削除し非公開にする。
func (s *Service) DeleteMyProfile(ctx context.Context, userID string) error {
	ok, err := s.profiles.SoftDelete(ctx, userID)
	if err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewNotFoundError(model.ErrCodeNotFound)
	}
	return nil
}
