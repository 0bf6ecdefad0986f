package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/attachment"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// AttachmentServiceInterface はメディア・ドキュメントのハンドラーが必要とするサービスインターフェース。
type AttachmentServiceInterface interface {
	ListMedia(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error)
	IssueMediaUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error)
	CreateMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.MediaInput) (*model.Media, error)
	SetFlag(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error)
	DeleteMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) error

	ListDocuments(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error)
	IssueDocumentUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.UploadInput) (*asset.UploadHandle, error)
	CreateDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in attachment.DocumentInput) (*model.Document, error)
	DeleteDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, documentID string) error
}

// AttachmentHandler は1種類の所有エンティティにぶら下がるメディアとドキュメントのHTTPハンドラー。
// 企業・プロジェクトはパスの{id}、ユーザーは認証済みユーザー自身が所有者になる。
type AttachmentHandler struct {
	service AttachmentServiceInterface
	owner   model.OwnerKind
}

// NewAttachmentHandler はAttachmentHandlerを生成する。
func NewAttachmentHandler(service AttachmentServiceInterface, owner model.OwnerKind) *AttachmentHandler {
	return &AttachmentHandler{service: service, owner: owner}
}

type mediaUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	AssetURL  string `json:"asset_url"`
}

type documentUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3_key"`
	AssetURL  string `json:"asset_url"`
}

// ownerID は所有エンティティのIDを返す。
func (h *AttachmentHandler) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.owner == model.OwnerUser {
		return requireUserID(w, r)
	}
	return pathID(w, r, "id", model.ErrCodeNotFound)
}

// target は変更操作の実行者と所有エンティティのIDを返す。
func (h *AttachmentHandler) target(w http.ResponseWriter, r *http.Request) (actorID, ownerID string, ok bool) {
	actorID, ok = requireUserID(w, r)
	if !ok {
		return "", "", false
	}
	ownerID, ok = h.ownerID(w, r)
	return actorID, ownerID, ok
}

// ListMedia はメディア一覧を返す。
// GET .../media
func (h *AttachmentHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListMedia(r.Context(), h.owner, ownerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

// MediaUploadURL はメディアのアップロードURLを発行する。
// POST .../media/upload-url
func (h *AttachmentHandler) MediaUploadURL(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req attachment.UploadInput
	if !decodeJSON(w, r, &req) {
		return
	}

	handle, err := h.service.IssueMediaUpload(r.Context(), actorID, h.owner, ownerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mediaUploadResponse{
		UploadURL: handle.UploadURL,
		Key:       handle.Key,
		AssetURL:  handle.AssetURL,
	})
}

// CreateMedia はアップロード済みオブジェクトをメディアとして登録する。
// POST .../media
func (h *AttachmentHandler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req attachment.MediaInput
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.CreateMedia(r.Context(), actorID, h.owner, ownerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// SetMediaFlag はメディアをカバー（企業・プロジェクト）またはアバター（ユーザー）にする。
// PATCH .../media/{mediaId}/cover, PATCH /users/me/media/{mediaId}/avatar
func (h *AttachmentHandler) SetMediaFlag(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	mediaID, ok := pathID(w, r, "mediaId", model.ErrCodeMediaNotFound)
	if !ok {
		return
	}

	m, err := h.service.SetFlag(r.Context(), actorID, h.owner, ownerID, mediaID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMedia はメディアを削除する。
// DELETE .../media/{mediaId}
func (h *AttachmentHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	mediaID, ok := pathID(w, r, "mediaId", model.ErrCodeMediaNotFound)
	if !ok {
		return
	}

	if err := h.service.DeleteMedia(r.Context(), actorID, h.owner, ownerID, mediaID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments はドキュメント一覧を署名付きURL付きで返す。
// GET .../documents?docType=
func (h *AttachmentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListDocuments(r.Context(), h.owner, ownerID, r.URL.Query().Get("docType"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

// DocumentUploadURL はドキュメントのアップロードURLを発行する。
// POST .../documents/upload-url
func (h *AttachmentHandler) DocumentUploadURL(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req attachment.UploadInput
	if !decodeJSON(w, r, &req) {
		return
	}

	handle, err := h.service.IssueDocumentUpload(r.Context(), actorID, h.owner, ownerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentUploadResponse{
		UploadURL: handle.UploadURL,
		S3Key:     handle.Key,
		AssetURL:  handle.AssetURL,
	})
}

// CreateDocument はアップロード済みオブジェクトをドキュメントとして登録する。
// POST .../documents
func (h *AttachmentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req attachment.DocumentInput
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.service.CreateDocument(r.Context(), actorID, h.owner, ownerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// DeleteDocument はドキュメントを削除する。
// DELETE .../documents/{documentId}
func (h *AttachmentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ownerID, ok := h.target(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentId", model.ErrCodeDocumentNotFound)
	if !ok {
		return
	}

	if err := h.service.DeleteDocument(r.Context(), actorID, h.owner, ownerID, documentID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
