// Package company は企業と所属ユーザーのドメインロジックを提供する。
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/events"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/repository"
	"github.com/hitoshi/carbonmarket/internal/security"
)

// DefaultPageSize は企業一覧の既定ページサイズ。
const DefaultPageSize = 20

// CreateInput は POST /companies の入力。
type CreateInput struct {
	LegalName            *string  `json:"legal_name"`
	FunctionDescription  *string  `json:"function_description"`
	GeographicalCoverage []string `json:"geographical_coverage"`
	CompanyEmail         *string  `json:"company_email"`
	WebsiteURL           *string  `json:"website_url"`
	PhoneNumber          *string  `json:"phone_number"`
	RegistrationURL      *string  `json:"registration_url"`
	EmployeesCount       *int     `json:"employees_count"`
	BusinessFunction     *string  `json:"business_function"`
}

// Service は企業管理のサービス層。
type Service struct {
	companies repository.CompanyRepository
	resolver  *asset.Resolver
	sanitizer security.TextSanitizer
	publisher events.Publisher
	recorder  events.FailureRecorder
}

// NewService はServiceを生成する。
func NewService(
	companies repository.CompanyRepository,
	resolver *asset.Resolver,
	sanitizer security.TextSanitizer,
	publisher events.Publisher,
	recorder events.FailureRecorder,
) *Service {
	return &Service{
		companies: companies,
		resolver:  resolver,
		sanitizer: sanitizer,
		publisher: publisher,
		recorder:  recorder,
	}
}

// List は企業一覧を返す。代表メディアのURLは公開URLに揃える。
func (s *Service) List(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) (*model.Page[model.CompanyListItem], error) {
	items, total, err := s.companies.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("企業一覧の取得に失敗しました: %w", err)
	}
	for i := range items {
		items[i].CoverAssetURL = s.resolver.ReconcilePtr(items[i].CoverAssetURL, items[i].CoverS3Key)
	}
	return &model.Page[model.CompanyListItem]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// Get は企業詳細を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.CompanyDetail, error) {
	c, err := s.companies.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewNotFoundError(model.ErrCodeNotFound)
	}
	return c, nil
}

// Create は企業を作成し、作成者を所有者とする。
func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (*model.Company, error) {
	switch {
	case blank(in.LegalName):
		return nil, model.NewRequiredFieldError("legal_name")
	case blank(in.CompanyEmail):
		return nil, model.NewRequiredFieldError("company_email")
	case blank(in.BusinessFunction):
		return nil, model.NewRequiredFieldError("business_function")
	case len(in.GeographicalCoverage) == 0:
		return nil, model.NewRequiredFieldError("geographical_coverage")
	}

	c, err := s.companies.Create(ctx, model.NewCompany{
		LegalName:            *in.LegalName,
		FunctionDescription:  security.SanitizePtr(s.sanitizer, in.FunctionDescription),
		GeographicalCoverage: in.GeographicalCoverage,
		CompanyEmail:         *in.CompanyEmail,
		WebsiteURL:           in.WebsiteURL,
		PhoneNumber:          in.PhoneNumber,
		RegistrationURL:      in.RegistrationURL,
		EmployeesCount:       in.EmployeesCount,
		BusinessFunction:     *in.BusinessFunction,
		OwnerUserID:          ownerUserID,
	})
	if err != nil {
		if apiErr := classifyWriteError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("企業の作成に失敗しました: %w", err)
	}

	events.Notify(ctx, s.publisher, s.recorder, events.SubjectCompanyCreated, ownerUserID, map[string]any{
		"company_id": c.ID,
		"legal_name": c.LegalName,
	})
	return c, nil
}

// Update は送信された既知の列だけを更新する。
// delete_flagも更新できるため、論理削除済みの企業を復元できる。
func (s *Service) Update(ctx context.Context, id string, body map[string]json.RawMessage) (*model.Company, error) {
	fields, err := model.DecodeFields(body, model.CompanyColumns)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.NewNoFieldsToUpdateError()
	}
	for i, f := range fields {
		if f.Column == "function_description" {
			if v, ok := f.Value.(string); ok {
				fields[i].Value = s.sanitizer.Sanitize(v)
			}
		}
	}

	c, err := s.companies.Update(ctx, id, fields)
	if err != nil {
		if apiErr := classifyWriteError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("企業の更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewNotFoundError(model.ErrCodeNotFound)
	}
	return c, nil
}

// Delete は企業を論理削除する。
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	ok, err := s.companies.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("企業の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewNotFoundError(model.ErrCodeNotFound)
	}
	events.Notify(ctx, s.publisher, s.recorder, events.SubjectCompanyDeleted, actorID, map[string]any{"company_id": id})
	return nil
}

// AddUser はユーザーを企業に所属させる。既に所属している場合は役職を更新する。
func (s *Service) AddUser(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewRequiredFieldError("user_id")
	}
	cu, err := s.companies.UpsertUser(ctx, companyID, userID, roleTitle)
	if err != nil {
		if apiErr := classifyWriteError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("所属の登録に失敗しました: %w", err)
	}
	return cu, nil
}

// ListUsers は所属ユーザーを返す。企業が論理削除されていても返す。
func (s *Service) ListUsers(ctx context.Context, companyID string) ([]model.CompanyUser, error) {
	users, err := s.companies.ListUsers(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("所属ユーザーの取得に失敗しました: %w", err)
	}
	return users, nil
}

// RemoveUser は所属を解除する。
func (s *Service) RemoveUser(ctx context.Context, companyID, userID string) error {
	if err := s.companies.RemoveUser(ctx, companyID, userID); err != nil {
		return fmt.Errorf("所属の解除に失敗しました: %w", err)
	}
	return nil
}

// RequireCompanyAccess はユーザーが企業に所属していなければForbiddenを返す。
func (s *Service) RequireCompanyAccess(ctx context.Context, companyID, userID string) error {
	ok, err := s.companies.HasUser(ctx, companyID, userID)
	if err != nil {
		return fmt.Errorf("所属の確認に失敗しました: %w", err)
	}
	if !ok {
		return model.NewForbiddenError()
	}
	return nil
}

// classifyWriteError はクライアント起因の制約違反をAPIErrorに変換する。該当しなければnil。
func classifyWriteError(err error) *model.APIError {
	switch {
	case database.IsForeignKeyViolation(err):
		return model.NewValidationError(model.ErrCodeInvalidReference, "A referenced record does not exist.")
	case database.IsInvalidInput(err):
		return model.NewValidationError(model.ErrCodeInvalidInputSyntax, "A field has an invalid format.")
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
