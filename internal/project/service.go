// Package project はプロジェクトとクレジットイベントのドメインロジックを提供する。
package project

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

// DefaultPageSize はプロジェクト一覧の既定ページサイズ。
const DefaultPageSize = 20

// sanitizedColumns はタグを除去して保存する自由記述列。
var sanitizedColumns = map[string]bool{
	"description":       true,
	"methodology_notes": true,
}

// CreditInput は POST /projects/{id}/credits の入力。
// quantityは数値と数値文字列のどちらも受け付ける。
type CreditInput struct {
	EventType    *string         `json:"event_type"`
	Quantity     json.RawMessage `json:"quantity"`
	EventDate    *string         `json:"event_date"`
	RegistryTxID *string         `json:"registry_tx_id"`
	Notes        *string         `json:"notes"`
}

// Service はプロジェクト管理のサービス層。
type Service struct {
	projects  repository.ProjectRepository
	resolver  *asset.Resolver
	sanitizer security.TextSanitizer
	publisher events.Publisher
	recorder  events.FailureRecorder
}

// NewService はServiceを生成する。
func NewService(
	projects repository.ProjectRepository,
	resolver *asset.Resolver,
	sanitizer security.TextSanitizer,
	publisher events.Publisher,
	recorder events.FailureRecorder,
) *Service {
	return &Service{
		projects:  projects,
		resolver:  resolver,
		sanitizer: sanitizer,
		publisher: publisher,
		recorder:  recorder,
	}
}

// List はプロジェクト一覧を返す。filter.OwnerUserIDを指定すると本人のプロジェクトだけを名前順で返す。
func (s *Service) List(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) (*model.Page[model.ProjectListItem], error) {
	items, total, err := s.projects.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	for i := range items {
		items[i].CoverAssetURL = s.resolver.ReconcilePtr(items[i].CoverAssetURL, items[i].CoverS3Key)
	}
	return &model.Page[model.ProjectListItem]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// Get はプロジェクト詳細を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.ProjectDetail, error) {
	p, err := s.projects.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewNotFoundError(model.ErrCodeNotFound)
	}
	return p, nil
}

// Create はプロジェクトを作成する。name と project_type は必須。
func (s *Service) Create(ctx context.Context, ownerUserID string, body map[string]json.RawMessage) (*model.Project, error) {
	fields, err := s.decode(body)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"name", "project_type"} {
		if !hasColumn(fields, required) {
			return nil, model.NewRequiredFieldError(required)
		}
	}

	p, err := s.projects.Create(ctx, ownerUserID, fields)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidReference, "A referenced record does not exist.")
		case database.IsInvalidInput(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidInputSyntax, "A field has an invalid format.")
		}
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	events.Notify(ctx, s.publisher, s.recorder, events.SubjectProjectCreated, ownerUserID, map[string]any{
		"project_id": p.ID,
		"name":       p.Name,
	})
	return p, nil
}

// Update は本人所有の未削除プロジェクトを部分更新する。
// 他人のプロジェクトは存在しないものとして扱う。
func (s *Service) Update(ctx context.Context, ownerUserID, id string, body map[string]json.RawMessage) (*model.Project, error) {
	fields, err := s.decode(body)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.NewNoFieldsToUpdateError()
	}

	p, err := s.projects.UpdateOwned(ctx, id, ownerUserID, fields)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidReference, "A referenced record does not exist.")
		case database.IsInvalidInput(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidInput, "A field has an invalid value.")
		}
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewNotFoundError(model.ErrCodeNotFound)
	}
	return p, nil
}

// Delete はプロジェクトを論理削除する。
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	ok, err := s.projects.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewNotFoundError(model.ErrCodeNotFound)
	}
	events.Notify(ctx, s.publisher, s.recorder, events.SubjectProjectDeleted, actorID, map[string]any{"project_id": id})
	return nil
}

// Credits は累計とイベント一覧を返す。
func (s *Service) Credits(ctx context.Context, projectID string) (*model.ProjectCredits, error) {
	totals, err := s.projects.CreditTotals(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("累計の取得に失敗しました: %w", err)
	}
	evs, err := s.projects.ListCreditEvents(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("クレジットイベントの取得に失敗しました: %w", err)
	}
	return &model.ProjectCredits{Totals: *totals, Events: evs}, nil
}

// RecordCredit はクレジットイベントを追記する。
func (s *Service) RecordCredit(ctx context.Context, actorID, projectID string, in CreditInput) (*model.CreditEvent, error) {
	if blank(in.EventType) || isNull(in.Quantity) || blank(in.EventDate) {
		return nil, model.NewValidationError(model.ErrCodeMissingFields, "event_type, quantity and event_date are required.")
	}
	if !model.IsValidCreditEventType(*in.EventType) {
		return nil, model.NewValidationError(model.ErrCodeEventTypeInvalid, "event_type must be issuance, offtake or retirement.")
	}
	quantity, ok := model.ParseNumeric(in.Quantity)
	if !ok {
		return nil, model.NewValidationError(model.ErrCodeInvalidInput, "quantity must be numeric.")
	}
	date, err := model.ParseDate(*in.EventDate)
	if err != nil {
		return nil, model.NewValidationError(model.ErrCodeInvalidInput, "event_date must be YYYY-MM-DD.")
	}

	ev, err := s.projects.CreateCreditEvent(ctx, projectID, model.NewCreditEvent{
		EventType:    *in.EventType,
		Quantity:     quantity,
		EventDate:    date.String(),
		RegistryTxID: in.RegistryTxID,
		Notes:        in.Notes,
	})
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, model.NewNotFoundError(model.ErrCodeProjectNotFound)
		case database.IsInvalidInput(err):
			return nil, model.NewValidationError(model.ErrCodeInvalidInput, "A field has an invalid value.")
		}
		return nil, fmt.Errorf("クレジットイベントの登録に失敗しました: %w", err)
	}

	events.Notify(ctx, s.publisher, s.recorder, events.SubjectCreditRecorded, actorID, map[string]any{
		"project_id": projectID,
		"event_id":   ev.ID,
		"event_type": ev.EventType,
		"quantity":   ev.Quantity,
	})
	return ev, nil
}

func (s *Service) decode(body map[string]json.RawMessage) ([]model.FieldValue, error) {
	fields, err := model.DecodeFields(body, model.ProjectColumns)
	if err != nil {
		return nil, err
	}
	for i, f := range fields {
		if v, ok := f.Value.(string); ok && sanitizedColumns[f.Column] {
			fields[i].Value = s.sanitizer.Sanitize(v)
		}
	}
	return fields, nil
}

func hasColumn(fields []model.FieldValue, col string) bool {
	for _, f := range fields {
		if f.Column == col {
			return true
		}
	}
	return false
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func isNull(raw json.RawMessage) bool {
	t := strings.TrimSpace(string(raw))
	return t == "" || t == "null"
}
