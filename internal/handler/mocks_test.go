package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/attachment"
	"github.com/hitoshi/carbonmarket/internal/auth"
	"github.com/hitoshi/carbonmarket/internal/company"
	"github.com/hitoshi/carbonmarket/internal/credential"
	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/project"
)

const testSecret = "handler-test-secret"

var testIssuer = credential.NewIssuer(testSecret, time.Hour)

// --- モック定義 ---

type mockAuthService struct {
	googleEnabled  bool
	registerFn     func(ctx context.Context, email, password string, name *string) (*auth.AuthResult, error)
	loginFn        func(ctx context.Context, email, password string) (*auth.AuthResult, error)
	meFn           func(ctx context.Context, userID string) (*auth.Me, error)
	googleSignInFn func(ctx context.Context, idToken string) (*auth.AuthResult, error)
}

func (m *mockAuthService) GoogleEnabled() bool { return m.googleEnabled }

func (m *mockAuthService) Register(ctx context.Context, email, password string, name *string) (*auth.AuthResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, name)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*auth.Me, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAuthService) GoogleSignIn(ctx context.Context, idToken string) (*auth.AuthResult, error) {
	if m.googleSignInFn != nil {
		return m.googleSignInFn(ctx, idToken)
	}
	return nil, nil
}

type mockProfileService struct {
	directoryFn     func(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error)
	publicProfileFn func(ctx context.Context, userID string) (*model.UserProfile, error)
	myProfileFn     func(ctx context.Context, userID string) (*model.UserProfile, error)
	upsertFn        func(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error)
	deleteFn        func(ctx context.Context, userID string) error
}

func (m *mockProfileService) Directory(ctx context.Context, filter model.DirectoryFilter, page model.PageRequest) (*model.Page[model.DirectoryEntry], error) {
	if m.directoryFn != nil {
		return m.directoryFn(ctx, filter, page)
	}
	return &model.Page[model.DirectoryEntry]{Items: []model.DirectoryEntry{}}, nil
}

func (m *mockProfileService) PublicProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if m.publicProfileFn != nil {
		return m.publicProfileFn(ctx, userID)
	}
	return nil, model.NewNotFoundError("")
}

func (m *mockProfileService) MyProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if m.myProfileFn != nil {
		return m.myProfileFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProfileService) UpsertMyProfile(ctx context.Context, userID string, in model.ProfileUpdate) (*model.UserProfile, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, in)
	}
	return &model.UserProfile{}, nil
}

func (m *mockProfileService) DeleteMyProfile(ctx context.Context, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

type mockCompanyService struct {
	listFn       func(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) (*model.Page[model.CompanyListItem], error)
	getFn        func(ctx context.Context, id string) (*model.CompanyDetail, error)
	createFn     func(ctx context.Context, ownerUserID string, in company.CreateInput) (*model.Company, error)
	updateFn     func(ctx context.Context, id string, body map[string]json.RawMessage) (*model.Company, error)
	deleteFn     func(ctx context.Context, actorID, id string) error
	addUserFn    func(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error)
	listUsersFn  func(ctx context.Context, companyID string) ([]model.CompanyUser, error)
	removeUserFn func(ctx context.Context, companyID, userID string) error
}

func (m *mockCompanyService) List(ctx context.Context, filter model.CompanyFilter, page model.PageRequest) (*model.Page[model.CompanyListItem], error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, page)
	}
	return &model.Page[model.CompanyListItem]{Items: []model.CompanyListItem{}}, nil
}

func (m *mockCompanyService) Get(ctx context.Context, id string) (*model.CompanyDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewNotFoundError("")
}

func (m *mockCompanyService) Create(ctx context.Context, ownerUserID string, in company.CreateInput) (*model.Company, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerUserID, in)
	}
	return &model.Company{}, nil
}

func (m *mockCompanyService) Update(ctx context.Context, id string, body map[string]json.RawMessage) (*model.Company, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, body)
	}
	return &model.Company{}, nil
}

func (m *mockCompanyService) Delete(ctx context.Context, actorID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, id)
	}
	return nil
}

func (m *mockCompanyService) AddUser(ctx context.Context, companyID, userID string, roleTitle *string) (*model.CompanyUser, error) {
	if m.addUserFn != nil {
		return m.addUserFn(ctx, companyID, userID, roleTitle)
	}
	return &model.CompanyUser{}, nil
}

func (m *mockCompanyService) ListUsers(ctx context.Context, companyID string) ([]model.CompanyUser, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, companyID)
	}
	return nil, nil
}

func (m *mockCompanyService) RemoveUser(ctx context.Context, companyID, userID string) error {
	if m.removeUserFn != nil {
		return m.removeUserFn(ctx, companyID, userID)
	}
	return nil
}

type mockProjectService struct {
	listFn         func(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) (*model.Page[model.ProjectListItem], error)
	getFn          func(ctx context.Context, id string) (*model.ProjectDetail, error)
	createFn       func(ctx context.Context, ownerUserID string, body map[string]json.RawMessage) (*model.Project, error)
	updateFn       func(ctx context.Context, ownerUserID, id string, body map[string]json.RawMessage) (*model.Project, error)
	deleteFn       func(ctx context.Context, actorID, id string) error
	creditsFn      func(ctx context.Context, projectID string) (*model.ProjectCredits, error)
	recordCreditFn func(ctx context.Context, actorID, projectID string, in project.CreditInput) (*model.CreditEvent, error)
}

func (m *mockProjectService) List(ctx context.Context, filter model.ProjectFilter, page model.PageRequest) (*model.Page[model.ProjectListItem], error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, page)
	}
	return &model.Page[model.ProjectListItem]{Items: []model.ProjectListItem{}}, nil
}

func (m *mockProjectService) Get(ctx context.Context, id string) (*model.ProjectDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewNotFoundError("")
}

func (m *mockProjectService) Create(ctx context.Context, ownerUserID string, body map[string]json.RawMessage) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerUserID, body)
	}
	return &model.Project{}, nil
}

func (m *mockProjectService) Update(ctx context.Context, ownerUserID, id string, body map[string]json.RawMessage) (*model.Project, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerUserID, id, body)
	}
	return &model.Project{}, nil
}

func (m *mockProjectService) Delete(ctx context.Context, actorID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, id)
	}
	return nil
}

func (m *mockProjectService) Credits(ctx context.Context, projectID string) (*model.ProjectCredits, error) {
	if m.creditsFn != nil {
		return m.creditsFn(ctx, projectID)
	}
	return &model.ProjectCredits{}, nil
}

func (m *mockProjectService) RecordCredit(ctx context.Context, actorID, projectID string, in project.CreditInput) (*model.CreditEvent, error) {
	if m.recordCreditFn != nil {
		return m.recordCreditFn(ctx, actorID, projectID, in)
	}
	return &model.CreditEvent{}, nil
}

type mockAttachmentService struct {
	listMediaFn      func(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error)
	mediaUploadFn    func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error)
	createMediaFn    func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.MediaInput) (*model.Media, error)
	setFlagFn        func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error)
	deleteMediaFn    func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) error
	listDocumentsFn  func(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error)
	documentUploadFn func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error)
	createDocumentFn func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.DocumentInput) (*model.Document, error)
	deleteDocumentFn func(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, documentID string) error
}

func (m *mockAttachmentService) ListMedia(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error) {
	if m.listMediaFn != nil {
		return m.listMediaFn(ctx, owner, ownerID)
	}
	return nil, nil
}

func (m *mockAttachmentService) IssueMediaUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error) {
	if m.mediaUploadFn != nil {
		return m.mediaUploadFn(ctx, actorID, owner, ownerID, in)
	}
	return &asset.UploadHandle{}, nil
}

func (m *mockAttachmentService) CreateMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.MediaInput) (*model.Media, error) {
	if m.createMediaFn != nil {
		return m.createMediaFn(ctx, actorID, owner, ownerID, in)
	}
	return &model.Media{}, nil
}

func (m *mockAttachmentService) SetFlag(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error) {
	if m.setFlagFn != nil {
		return m.setFlagFn(ctx, actorID, owner, ownerID, mediaID)
	}
	return &model.Media{}, nil
}

func (m *mockAttachmentService) DeleteMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) error {
	if m.deleteMediaFn != nil {
		return m.deleteMediaFn(ctx, actorID, owner, ownerID, mediaID)
	}
	return nil
}

func (m *mockAttachmentService) ListDocuments(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error) {
	if m.listDocumentsFn != nil {
		return m.listDocumentsFn(ctx, owner, ownerID, docType)
	}
	return nil, nil
}

func (m *mockAttachmentService) IssueDocumentUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error) {
	if m.documentUploadFn != nil {
		return m.documentUploadFn(ctx, actorID, owner, ownerID, in)
	}
	return &asset.UploadHandle{}, nil
}

func (m *mockAttachmentService) CreateDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.DocumentInput) (*model.Document, error) {
	if m.createDocumentFn != nil {
		return m.createDocumentFn(ctx, actorID, owner, ownerID, in)
	}
	return &model.Document{}, nil
}

func (m *mockAttachmentService) DeleteDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, documentID string) error {
	if m.deleteDocumentFn != nil {
		return m.deleteDocumentFn(ctx, actorID, owner, ownerID, documentID)
	}
	return nil
}

// --- テストヘルパー ---

// testDeps は全サービスをモックで埋めたRouterDepsを返す。
func testDeps() *RouterDeps {
	return &RouterDeps{
		TokenVerifier:     testIssuer,
		AuthService:       &mockAuthService{},
		ProfileService:    &mockProfileService{},
		CompanyService:    &mockCompanyService{},
		ProjectService:    &mockProjectService{},
		AttachmentService: &mockAttachmentService{},
	}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := testIssuer.Issue(userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func newRequest(method, path, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// serve はルーターにリクエストを送る。userIDが空でなければベアラートークンを付ける。
func serve(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(method, path, body)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	return do(h, req)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v (raw=%q)", err, w.Body.String())
	}
	return body
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, status, w.Body.String())
	}
	if body := decodeError(t, w); body.Error != code {
		t.Errorf("error = %q, want %q", body.Error, code)
	}
}
