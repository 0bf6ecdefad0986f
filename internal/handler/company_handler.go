package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carbonmarket/internal/company"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// CompanyServiceInterface は企業ハンドラーが必要とするサービスインターフェース。
type CompanyServiceInterface interface {
	List(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) (*model.Page[model.CompanyListItem], error)
	Get(ctx context.Context, id string) (*model.CompanyDetail, error)
	Create(ctx context.Context, ownerUserID string, in company.CreateInput) (*model.Company, error)
	Update(ctx context.Context, id string, body map[string]json.RawMessage) (*model.Company, error)
	Delete(ctx context.Context, actorID, id string) error

	AddUser(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error)
	ListUsers(ctx context.Context, companyID string) ([]model.CompanyUser, error)
	RemoveUser(ctx context.Context, companyID, userID string) error
}

// CompanyHandler は企業管理のHTTPハンドラー。
type CompanyHandler struct {
	service CompanyServiceInterface
}

// NewCompanyHandler はCompanyHandlerを生成する。
func NewCompanyHandler(service CompanyServiceInterface) *CompanyHandler {
	return &CompanyHandler{service: service}
}

type addCompanyUserRequest struct {
	UserID    string  `json:"user_id"`
	RoleTitle *string `json:"role_title"`
}

// List は企業一覧を返す。
// GET /companies?q=&page=&pageSize=
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.CompanyFilter{Q: r.URL.Query().Get("q")}
	h.list(w, r, filter)
}

// MyCompanies は認証済みユーザーが所有する企業を返す。
// GET /companies/mycompanies
func (h *CompanyHandler) MyCompanies(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.list(w, r, model.CompanyFilter{Q: r.URL.Query().Get("q"), OwnerUserID: userID})
}

func (h *CompanyHandler) list(w http.ResponseWriter, r *http.Request, filter model.CompanyFilter) {
	page, err := h.service.List(r.Context(), filter, pageRequest(r, company.DefaultPageSize))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get は企業詳細をクレジット集計付きで返す。
// GET /companies/{id}
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create は企業を作成する。
// POST /companies
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req company.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update は送信されたフィールドだけを更新する。
// PATCH /companies/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	c, err := h.service.Update(r.Context(), id, body)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete は企業を論理削除する。
// DELETE /companies/{id}
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// ListUsers は所属ユーザーを返す。
// GET /companies/{id}/users
func (h *CompanyHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(users))
}

// AddUser はユーザーを企業に所属させる。
// POST /companies/{id}/users
func (h *CompanyHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}
	var req addCompanyUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cu, err := h.service.AddUser(r.Context(), id, req.UserID, req.RoleTitle)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cu)
}

// RemoveUser は所属を解除する。
// DELETE /companies/{id}/users/{userId}
func (h *CompanyHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", model.ErrCodeNotFound)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", model.ErrCodeNotFound)
	if !ok {
		return
	}

	if err := h.service.RemoveUser(r.Context(), id, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
