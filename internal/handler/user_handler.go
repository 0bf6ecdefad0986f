package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/profile"
)

// ProfileServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Directory(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error)
	PublicProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	MyProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	UpsertMyProfile(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error)
	DeleteMyProfile(ctx context.Context, userID string) error
}

// UserHandler はユーザーディレクトリとプロフィールのHTTPハンドラー。
type UserHandler struct {
	service ProfileServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service ProfileServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// profileRequest はプロフィール更新リクエストのボディ。
// 真偽値は型が真偽値の場合だけ反映するため生JSONで受ける。
type profileRequest struct {
	FullName         *string         `json:"full_name"`
	Headline         *string         `json:"headline"`
	JobTitle         *string         `json:"job_title"`
	CompanyID        *string         `json:"company_id"`
	OrgName          *string         `json:"org_name"`
	Country          *string         `json:"country"`
	City             *string         `json:"city"`
	Timezone         *string         `json:"timezone"`
	RoleType         *string         `json:"role_type"`
	ExpertiseTags    []string        `json:"expertise_tags"`
	ServiceOfferings []string        `json:"service_offerings"`
	Sectors          []string        `json:"sectors"`
	Standards        []string        `json:"standards"`
	Languages        []string        `json:"languages"`
	PersonalWebsite  *string         `json:"personal_website"`
	LinkedinURL      *string         `json:"linkedin_url"`
	PortfolioURL     *string         `json:"portfolio_url"`
	ContactEmail     *string         `json:"contact_email"`
	PhoneNumber      *string         `json:"phone_number"`
	IsPublic         json.RawMessage `json:"is_public"`
	ShowPhone        json.RawMessage `json:"show_phone"`
	ShowContactEmail json.RawMessage `json:"show_contact_email"`
	Bio              *string         `json:"bio"`
}

func (p profileRequest) toUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		FullName:         p.FullName,
		Headline:         p.Headline,
		JobTitle:         p.JobTitle,
		CompanyID:        p.CompanyID,
		OrgName:          p.OrgName,
		Country:          p.Country,
		City:             p.City,
		Timezone:         p.Timezone,
		RoleType:         p.RoleType,
		ExpertiseTags:    p.ExpertiseTags,
		ServiceOfferings: p.ServiceOfferings,
		Sectors:          p.Sectors,
		Standards:        p.Standards,
		Languages:        p.Languages,
		PersonalWebsite:  p.PersonalWebsite,
		LinkedinURL:      p.LinkedinURL,
		PortfolioURL:     p.PortfolioURL,
		ContactEmail:     p.ContactEmail,
		PhoneNumber:      p.PhoneNumber,
		IsPublic:         boolOnly(p.IsPublic),
		ShowPhone:        boolOnly(p.ShowPhone),
		ShowContactEmail: boolOnly(p.ShowContactEmail),
		Bio:              p.Bio,
	}
}

// boolOnly は生JSONが真偽値ならそのポインタを返す。それ以外（未送信、null、文字列など）はnil。
func boolOnly(raw json.RawMessage) *bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return nil
	}
	return &b
}

// Directory は公開ディレクトリを検索する。
// GET /users?q=&country=&roleType=&expertiseTag=&sector=&standard=&language=&page=&pageSize=
func (h *UserHandler) Directory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DirectoryFilter{
		Q:            q.Get("q"),
		Country:      q.Get("country"),
		RoleType:     q.Get("roleType"),
		ExpertiseTag: q.Get("expertiseTag"),
		Sector:       q.Get("sector"),
		Standard:     q.Get("standard"),
		Language:     q.Get("language"),
	}

	page, err := h.service.Directory(r.Context(), filter, pageRequest(r, profile.DefaultDirectoryPageSize))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// PublicProfile は公開プロフィールを返す。
// GET /users/{userId}
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", model.ErrCodeNotFound)
	if !ok {
		return
	}

	p, err := h.service.PublicProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MyProfile は本人のプロフィールを返す。未作成ならnull。
// GET /users/me/profile
func (h *UserHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.MyProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpsertMyProfile は本人のプロフィールを作成または更新する。
// PATCH /users/me/profile
func (h *UserHandler) UpsertMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpsertMyProfile(r.Context(), userID, req.toUpdate())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteMyProfile は本人のプロフィールを論理削除する。
// DELETE /users/me/profile
func (h *UserHandler) DeleteMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMyProfile(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
