package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hitoshi/carbonmarket/internal/model"
)

// TestDirectory_PassesFiltersAndClampsPage はクエリが検索条件とページ指定に変換されることを検証する。
func TestDirectory_PassesFiltersAndClampsPage(t *testing.T) {
	var (
		gotFilter model.DirectoryFilter
		gotPage   model.PageRequest
	)
	deps := testDeps()
	deps.ProfileService = &mockProfileService{
		directoryFn: func(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error) {
			gotFilter, gotPage = filter, page
			return &model.Page[model.DirectoryEntry]{Items: []model.DirectoryEntry{}, Total: 0, Page: page.Page, PageSize: page.PageSize}, nil
		},
	}

	w := serve(t, NewRouter(deps), http.MethodGet,
		"/users?q=forest&country=KE&roleType=developer&expertiseTag=redd&sector=afolu&standard=vcs&language=en&page=2&pageSize=500", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	want := model.DirectoryFilter{Q: "forest", Country: "KE", RoleType: "developer", ExpertiseTag: "redd", Sector: "afolu", Standard: "vcs", Language: "en"}
	if gotFilter != want {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotPage.Page != 2 || gotPage.PageSize != 100 {
		t.Errorf("page = %+v, want page 2 size 100", gotPage)
	}

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, key := range []string{"items", "total", "page", "pageSize"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestDirectory_DefaultPageSize(t *testing.T) {
	var gotPage model.PageRequest
	deps := testDeps()
	deps.ProfileService = &mockProfileService{
		directoryFn: func(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error) {
			gotPage = page
			return &model.Page[model.DirectoryEntry]{}, nil
		},
	}

	serve(t, NewRouter(deps), http.MethodGet, "/users", "", "")
	if gotPage.Page != 1 || gotPage.PageSize != 10 {
		t.Errorf("page = %+v, want 1/10", gotPage)
	}
}

func TestMyProfile_NullWhenAbsent(t *testing.T) {
	w := serve(t, NewRouter(testDeps()), http.MethodGet, "/users/me/profile", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "null\n" {
		t.Errorf("body = %q, want null", w.Body.String())
	}
}

// TestUpsertMyProfile_BooleansOnlyWhenBoolean は真偽値以外の公開設定が無視されることを検証する。
func TestUpsertMyProfile_BooleansOnlyWhenBoolean(t *testing.T) {
	var (
		gotUser string
		got     model.ProfileUpdate
	)
	deps := testDeps()
	deps.ProfileService = &mockProfileService{
		upsertFn: func(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error) {
			gotUser, got = userID, in
			return &model.UserProfile{UserID: userID}, nil
		},
	}

	body := `{"full_name":"Ada","is_public":"yes","show_phone":true,"show_contact_email":null,"sectors":["energy"],"company_id":null,"unknown":1}`
	w := serve(t, NewRouter(deps), http.MethodPatch, "/users/me/profile", "u1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body=%s)", w.Code, w.Body.String())
	}

	if gotUser != "u1" {
		t.Errorf("userID = %q", gotUser)
	}
	if got.FullName == nil || *got.FullName != "Ada" {
		t.Errorf("FullName = %v", got.FullName)
	}
	if got.IsPublic != nil {
		t.Errorf("IsPublic = %v, want nil for a non-boolean value", *got.IsPublic)
	}
	if got.ShowPhone == nil || !*got.ShowPhone {
		t.Errorf("ShowPhone = %v, want true", got.ShowPhone)
	}
	if got.ShowContactEmail != nil {
		t.Error("ShowContactEmail should be nil for null")
	}
	if len(got.Sectors) != 1 || got.Sectors[0] != "energy" {
		t.Errorf("Sectors = %v", got.Sectors)
	}
	if got.CompanyID != nil || got.Headline != nil {
		t.Errorf("CompanyID/Headline should be nil")
	}
}

func TestDeleteMyProfile(t *testing.T) {
	deps := testDeps()
	deps.ProfileService = &mockProfileService{
		deleteFn: func(ctx context.Context, userID string) error {
			if userID == "without-profile" {
				return model.NewNotFoundError("")
			}
			return nil
		},
	}
	router := NewRouter(deps)

	if w := serve(t, router, http.MethodDelete, "/users/me/profile", "u1", ""); w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	w := serve(t, router, http.MethodDelete, "/users/me/profile", "without-profile", "")
	assertError(t, w, http.StatusNotFound, "not_found")
}

func TestPublicProfile(t *testing.T) {
	const userID = "2b7c1f4e-9a3d-4e5f-8b6a-1c2d3e4f5a6b"
	deps := testDeps()
	deps.ProfileService = &mockProfileService{
		publicProfileFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			if id != userID {
				return nil, model.NewNotFoundError("")
			}
			return &model.UserProfile{UserID: id}, nil
		},
	}

	w := serve(t, NewRouter(deps), http.MethodGet, "/users/"+userID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p model.UserProfile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if p.UserID != userID {
		t.Errorf("user_id = %q", p.UserID)
	}
}
