package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	List(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) (*model.Page[model.ProjectListItem], error)
	Get(ctx context.Context, id string) (*model.ProjectDetail, error)
	Create(ctx context.Context, ownerUserID string, body map[string]json.RawMessage) (*model.Project, error)
	Update(ctx context.Context, ownerUserID, id string, body map[string]json.RawMessage) (*model.Project, error)
	Delete(ctx context.Context, actorID, id string) error

	Credits(ctx context.Context, projectID string) (*model.ProjectCredits, error)
	RecordCredit(ctx context.Context, actorID, projectID string, in project.CreditInput) (*model.CreditEvent, error)
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// List はプロジェクト一覧を返す。
// GET /projects?q=&projectType=&status=&sector=&hostCountry=&companyId=&page=&pageSize=
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ProjectFilter{
		Q:           q.Get("q"),
		ProjectType: q.Get("projectType"),
		Status:      q.Get("status"),
		Sector:      q.Get("sector"),
		HostCountry: q.Get("hostCountry"),
		CompanyID:   q.Get("companyId"),
	}
	if filter.CompanyID != "" {
		if _, err := uuid.Parse(filter.CompanyID); err != nil {
			middleware.WriteError(w, model.NewValidationError(model.ErrCodeInvalidInput, "companyId must be a UUID."))
			return
		}
	}
	h.list(w, r, filter)
}

// MyProjects は認証済みユーザーが所有するプロジェクトを返す。
// GET /projects/myprojects
func (h *ProjectHandler) MyProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.list(w, r, model.ProjectFilter{OwnerUserID: userID})
}

func (h *ProjectHandler) list(w http.ResponseWriter, r *http.Request, filter model.ProjectFilter) {
	page, err := h.service.List(r.Context(), filter, pageRequest(r, project.DefaultPageSize))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get はプロジェクト詳細を返す。
// GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create はプロジェクトを作成する。
// POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	p, err := h.service.Create(r.Context(), userID, body)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update は所有者本人のプロジェクトを部分更新する。他人のプロジェクトは404になる。
// PATCH /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	p, err := h.service.Update(r.Context(), userID, id, body)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete はプロジェクトを論理削除する。
// DELETE /projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Credits はクレジット集計とイベント履歴を返す。
// GET /projects/{id}/credits
func (h *ProjectHandler) Credits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeProjectNotFound)
	if !ok {
		return
	}

	credits, err := h.service.Credits(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

// RecordCredit はクレジットイベントを追記する。
// POST /projects/{id}/credits
func (h *ProjectHandler) RecordCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrCodeProjectNotFound)
	if !ok {
		return
	}
	var req project.CreditInput
	if !decodeJSON(w, r, &req) {
		return
	}

	ev, err := h.service.RecordCredit(r.Context(), userID, id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
