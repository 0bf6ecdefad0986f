// Package attachment は企業・プロジェクト・ユーザーに紐づくメディアとドキュメントを扱う。
// バイト列は署名付きURLでクライアントとオブジェクトストレージの間を直接流れ、
// このパッケージは行の登録・削除と、キーの割り当て・検証だけを行う。
package attachment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/events"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/repository"
)

// signConcurrency はドキュメント一覧で同時に発行する署名付きURLの上限。
const signConcurrency = 8

// アップロードURL発行メトリクスのkindラベル。
const (
	kindMedia     = "media"
	kindDocuments = "documents"
)

// AccessChecker は企業への所属を確認する。company.Serviceが満たす。
type AccessChecker interface {
	RequireCompanyAccess(ctx context.Context, companyID, userID string) error
}

// Recorder はアセット操作のメトリクスを記録する。metrics.Collectorが満たす。
type Recorder interface {
	events.FailureRecorder
	RecordUploadURLIssued(owner, kind string)
	RecordSignFailure()
	RecordDeleteFailure()
}

// UploadInput はアップロードURL発行の入力。
type UploadInput struct {
	FileExt     string `json:"fileExt"`
	ContentType string `json:"contentType"`
}

// MediaInput はアップロード後のメディア登録入力。
// IsCoverは企業・プロジェクト、IsAvatarはユーザーで使う。
type MediaInput struct {
	Kind        *string        `json:"kind"`
	AssetURL    *string        `json:"asset_url"`
	S3Key       *string        `json:"s3_key"`
	ContentType *string        `json:"content_type"`
	SHA256      *string        `json:"sha256"`
	Metadata    model.Metadata `json:"metadata"`
	IsCover     *bool          `json:"is_cover"`
	IsAvatar    *bool          `json:"is_avatar"`
}

// DocumentInput はアップロード後のドキュメント登録入力。
type DocumentInput struct {
	DocType     *string        `json:"doc_type"`
	Title       *string        `json:"title"`
	AssetURL    *string        `json:"asset_url"`
	S3Key       *string        `json:"s3_key"`
	ContentType *string        `json:"content_type"`
	SHA256      *string        `json:"sha256"`
	Metadata    model.Metadata `json:"metadata"`
}

// Service はメディアとドキュメントのサービス層。
type Service struct {
	media     repository.MediaRepository
	documents repository.DocumentRepository
	broker    *asset.Broker
	access    AccessChecker
	publisher events.Publisher
	recorder  Recorder
}

// NewService はServiceを生成する。
// accessがnilでなければ、企業のメディア・ドキュメントの変更前に所属を確認する。
func NewService(
	media repository.MediaRepository,
	documents repository.DocumentRepository,
	broker *asset.Broker,
	access AccessChecker,
	publisher events.Publisher,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		media:     media,
		documents: documents,
		broker:    broker,
		access:    access,
		publisher: publisher,
		recorder:  recorder,
	}
}

// ListMedia はカバー（アバター）を先頭に新しい順でメディアを返す。asset_urlは公開URLにそろえる。
func (s *Service) ListMedia(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Media, error) {
	items, err := s.media.List(ctx, owner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("メディア一覧の取得に失敗しました: %w", err)
	}
	resolver := s.broker.Resolver()
	for i := range items {
		items[i].AssetURL = resolver.ReconcilePtr(items[i].AssetURL, items[i].S3Key)
	}
	return items, nil
}

// IssueMediaUpload はメディア用のアップロードURLを発行する。
func (s *Service) IssueMediaUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in UploadInput) (*asset.UploadHandle, error) {
	return s.issueUpload(ctx, actorID, owner, ownerID, asset.MediaPrefix(owner, ownerID), kindMedia, in)
}

// IssueDocumentUpload はドキュメント用のアップロードURLを発行する。
func (s *Service) IssueDocumentUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in UploadInput) (*asset.UploadHandle, error) {
	return s.issueUpload(ctx, actorID, owner, ownerID, asset.DocumentPrefix(owner, ownerID), kindDocuments, in)
}

func (s *Service) issueUpload(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, prefix, kind string, in UploadInput) (*asset.UploadHandle, error) {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return nil, err
	}
	h, err := s.broker.IssueUploadHandle(ctx, prefix, in.FileExt, in.ContentType)
	if err != nil {
		if errors.Is(err, asset.ErrInvalidUploadRequest) {
			return nil, model.NewValidationError(model.ErrCodeUploadInput, "fileExt and contentType are required.")
		}
		return nil, fmt.Errorf("アップロードURLの発行に失敗しました: %w", err)
	}
	s.recorder.RecordUploadURLIssued(string(owner), kind)
	return h, nil
}

// CreateMedia はアップロード済みオブジェクトをメディアとして登録する。
// 企業・プロジェクトはs3_keyが必須で、asset_urlはキーから組み立てる。
// ユーザーはasset_urlとs3_keyのどちらかがあればよく、欠けている側を補う。
// 保存するキーは、明示されたものもasset_urlから取り出したものも、
// 所有者のメディアプレフィックス配下でなければならない。
func (s *Service) CreateMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in MediaInput) (*model.Media, error) {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return nil, err
	}

	var (
		assetURL, key string
		flagged       bool
	)
	resolver := s.broker.Resolver()
	prefix := asset.MediaPrefix(owner, ownerID)

	if owner == model.OwnerUser {
		if blank(in.AssetURL) && blank(in.S3Key) {
			return nil, model.NewValidationError(model.ErrCodeAssetRequired, "asset_url or s3_key is required.")
		}
		if !blank(in.S3Key) {
			key = strings.TrimSpace(*in.S3Key)
			if !asset.HasPrefix(key, prefix) {
				return nil, invalidPrefix(prefix)
			}
		}
		if !blank(in.AssetURL) {
			assetURL = strings.TrimSpace(*in.AssetURL)
		} else {
			assetURL = resolver.PublicURL(key)
		}
		if key == "" {
			key, _ = asset.KeyFromURL(assetURL)
			if !asset.HasPrefix(key, prefix) {
				return nil, invalidPrefix(prefix)
			}
		}
		flagged = in.IsAvatar != nil && *in.IsAvatar
	} else {
		if blank(in.S3Key) {
			return nil, model.NewValidationError(model.ErrCodeS3KeyRequired, "s3_key is required.")
		}
		key = strings.TrimSpace(*in.S3Key)
		if !asset.HasPrefix(key, prefix) {
			return nil, invalidPrefix(prefix)
		}
		assetURL = resolver.PublicURL(key)
		flagged = in.IsCover != nil && *in.IsCover
	}

	m, err := s.media.Create(ctx, owner, ownerID, model.NewMedia{
		Kind:        in.Kind,
		AssetURL:    &assetURL,
		S3Key:       nonEmpty(key),
		ContentType: in.ContentType,
		SHA256:      in.SHA256,
		Metadata:    in.Metadata,
		Flagged:     flagged,
	})
	if err != nil {
		return nil, classifyWriteError(err, "メディアの登録に失敗しました")
	}
	return m, nil
}

// SetFlag は指定メディアをカバー（ユーザーはアバター）にする。
func (s *Service) SetFlag(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) (*model.Media, error) {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return nil, err
	}
	m, err := s.media.SetFlag(ctx, owner, ownerID, mediaID)
	if err != nil {
		return nil, classifyWriteError(err, "カバーの設定に失敗しました")
	}
	if m == nil {
		return nil, model.NewNotFoundError(model.ErrCodeMediaNotFound)
	}
	return m, nil
}

// DeleteMedia はメディア行を削除し、オブジェクトの削除を試みる。
func (s *Service) DeleteMedia(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, mediaID string) error {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return err
	}
	removed, err := s.media.Delete(ctx, owner, ownerID, mediaID)
	if err != nil {
		return fmt.Errorf("メディアの削除に失敗しました: %w", err)
	}
	if removed == nil {
		return model.NewNotFoundError(model.ErrCodeMediaNotFound)
	}
	s.removeObject(ctx, actorID, owner, ownerID, asset.MediaPrefix(owner, ownerID), removed)
	return nil
}

// ListDocuments はドキュメントを新しい順に返し、各行に読み取り用の署名付きURLを付ける。
// 署名に失敗した行はsigned_urlをnullにして返す。
func (s *Service) ListDocuments(ctx context.Context, owner model.OwnerKind, ownerID, docType string) ([]model.Document, error) {
	docs, err := s.documents.List(ctx, owner, ownerID, docType)
	if err != nil {
		return nil, fmt.Errorf("ドキュメント一覧の取得に失敗しました: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i := range docs {
		i := i
		key, ok := asset.ObjectKey(docs[i].AssetURL, docs[i].S3Key)
		if !ok {
			continue
		}
		g.Go(func() error {
			u, err := s.broker.SignedReadURL(gctx, key)
			if err != nil {
				slog.WarnContext(gctx, "failed to sign document url",
					slog.String("document_id", docs[i].ID),
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				s.recorder.RecordSignFailure()
				return nil
			}
			docs[i].SignedURL = &u
			return nil
		})
	}
	_ = g.Wait()

	return docs, nil
}

// CreateDocument はアップロード済みオブジェクトをドキュメントとして登録する。
// キーはs3_key、なければasset_urlから取り出したものを使う。
func (s *Service) CreateDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string, in DocumentInput) (*model.Document, error) {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return nil, err
	}
	if blank(in.DocType) || blank(in.AssetURL) {
		return nil, model.NewValidationError(model.ErrCodeMissingFields, "doc_type and asset_url are required.")
	}

	assetURL := strings.TrimSpace(*in.AssetURL)
	derived, derivedOK := asset.KeyFromURL(assetURL)
	key := derived
	explicit := !blank(in.S3Key)
	if explicit {
		key = strings.TrimSpace(*in.S3Key)
	}
	if key == "" {
		return nil, model.NewValidationError(model.ErrCodeS3KeyUnparseable, "s3_key is required when asset_url has no object key.")
	}
	if explicit && derivedOK && key != derived {
		return nil, model.NewValidationError(model.ErrCodeS3KeyMismatch, "s3_key does not match asset_url.")
	}
	prefix := asset.DocumentPrefix(owner, ownerID)
	if !asset.HasPrefix(key, prefix) {
		return nil, invalidPrefix(prefix)
	}

	d, err := s.documents.Create(ctx, owner, ownerID, model.NewDocument{
		DocType:     strings.TrimSpace(*in.DocType),
		Title:       in.Title,
		AssetURL:    assetURL,
		S3Key:       key,
		ContentType: in.ContentType,
		SHA256:      in.SHA256,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, classifyWriteError(err, "ドキュメントの登録に失敗しました")
	}
	return d, nil
}

// DeleteDocument はドキュメント行を削除し、オブジェクトの削除を試みる。
func (s *Service) DeleteDocument(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, documentID string) error {
	if err := s.authorize(ctx, actorID, owner, ownerID); err != nil {
		return err
	}
	removed, err := s.documents.Delete(ctx, owner, ownerID, documentID)
	if err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗しました: %w", err)
	}
	if removed == nil {
		return model.NewNotFoundError(model.ErrCodeDocumentNotFound)
	}
	s.removeObject(ctx, actorID, owner, ownerID, asset.DocumentPrefix(owner, ownerID), removed)
	return nil
}

func (s *Service) authorize(ctx context.Context, actorID string, owner model.OwnerKind, ownerID string) error {
	if s.access == nil || owner != model.OwnerCompany {
		return nil
	}
	return s.access.RequireCompanyAccess(ctx, ownerID, actorID)
}

// removeObject は行の削除後にオブジェクトを消す。失敗はログ・メトリクス・イベントに残し、呼び出し元には返さない。
// prefix配下にないキーは他の所有者のオブジェクトなので消さない。
func (s *Service) removeObject(ctx context.Context, actorID string, owner model.OwnerKind, ownerID, prefix string, removed *model.RemovedAsset) {
	key, ok := asset.ObjectKey(removed.AssetURL, removed.S3Key)
	if !ok {
		return
	}
	if !asset.HasPrefix(key, prefix) {
		slog.WarnContext(ctx, "skipped deleting object outside owner prefix",
			slog.String("key", key),
			slog.String("prefix", prefix),
		)
		return
	}
	if err := s.broker.DeleteByKey(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordDeleteFailure()
		events.Notify(ctx, s.publisher, s.recorder, events.SubjectAssetOrphaned, actorID, map[string]any{
			"owner":    string(owner),
			"owner_id": ownerID,
			"key":      key,
		})
	}
}

func classifyWriteError(err error, msg string) error {
	switch {
	case database.IsUniqueViolation(err):
		return model.NewConflictError(model.ErrCodeCoverConflict, "Another cover was set concurrently.")
	case database.IsForeignKeyViolation(err):
		return model.NewNotFoundError(model.ErrCodeNotFound)
	case database.IsInvalidInput(err):
		return model.NewValidationError(model.ErrCodeInvalidInput, "A field has an invalid value.")
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func invalidPrefix(prefix string) *model.APIError {
	return model.NewValidationError(model.ErrCodeS3KeyInvalidPrefix, fmt.Sprintf("s3_key must start with %s/", prefix))
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type nopRecorder struct{}

func (nopRecorder) RecordPublishFailure(string)          {}
func (nopRecorder) RecordUploadURLIssued(string, string) {}
func (nopRecorder) RecordSignFailure()                   {}
func (nopRecorder) RecordDeleteFailure()                 {}
