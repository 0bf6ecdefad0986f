package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// 署名付きURLの既定有効期間（10分）。
const (
	DefaultUploadTTL = 10 * time.Minute
	DefaultReadTTL   = 10 * time.Minute
)

// ErrInvalidUploadRequest は拡張子またはContent-Typeが空の場合に返る。
var ErrInvalidUploadRequest = errors.New("fileExt and contentType are required")

// ObjectStore はS3互換オブジェクトストレージへの操作。
// バイト列はAPIを経由せず、クライアントが署名付きURLで直接転送する。
type ObjectStore interface {
	// PresignPut はContent-Typeを束縛したPUT用の署名付きURLを返す。
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignGet は読み取り用の署名付きURLを返す。
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete はオブジェクトを削除する。
	Delete(ctx context.Context, key string) error
}

// UploadHandle はアップロード用の署名付きURLと、完了後に参照されるキー・公開URL。
type UploadHandle struct {
	UploadURL string
	Key       string
	AssetURL  string
}

// Broker は署名付きURLの発行とオブジェクト削除を仲介する。
type Broker struct {
	store     ObjectStore
	resolver  *Resolver
	uploadTTL time.Duration
	readTTL   time.Duration
	newID     func() string
}

// BrokerConfig はBrokerの設定。0の値は既定値に置き換える。
type BrokerConfig struct {
	UploadTTL time.Duration
	ReadTTL   time.Duration
}

// NewBroker はBrokerを生成する。
func NewBroker(store ObjectStore, resolver *Resolver, cfg BrokerConfig) *Broker {
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = DefaultUploadTTL
	}
	if cfg.ReadTTL <= 0 {
		cfg.ReadTTL = DefaultReadTTL
	}
	return &Broker{
		store:     store,
		resolver:  resolver,
		uploadTTL: cfg.UploadTTL,
		readTTL:   cfg.ReadTTL,
		newID:     func() string { return uuid.NewString() },
	}
}

// Resolver はBrokerが使う公開URLリゾルバを返す。
func (b *Broker) Resolver() *Resolver {
	return b.resolver
}

// IssueUploadHandle は prefix/<uuid>.<ext> のキーを割り当て、PUT用の署名付きURLを発行する。
// 拡張子先頭のドットは取り除く。
func (b *Broker) IssueUploadHandle(ctx context.Context, prefix, fileExt, contentType string) (*UploadHandle, error) {
	if prefix == "" {
		return nil, errors.New("upload prefix is required")
	}
	ext := strings.TrimPrefix(strings.TrimSpace(fileExt), ".")
	contentType = strings.TrimSpace(contentType)
	if ext == "" || contentType == "" {
		return nil, ErrInvalidUploadRequest
	}

	key := fmt.Sprintf("%s/%s.%s", strings.TrimRight(prefix, "/"), b.newID(), ext)

	uploadURL, err := b.store.PresignPut(ctx, key, contentType, b.uploadTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return &UploadHandle{
		UploadURL: uploadURL,
		Key:       key,
		AssetURL:  b.resolver.PublicURL(key),
	}, nil
}

// SignedReadURL は非公開オブジェクトの読み取り用署名付きURLを返す。
func (b *Broker) SignedReadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	u, err := b.store.PresignGet(ctx, key, b.readTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign read for %s: %w", key, err)
	}
	return u, nil
}

// DeleteByKey はオブジェクトを削除する。呼び出し側はエラーを記録するだけで、リクエストは失敗させない。
func (b *Broker) DeleteByKey(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := b.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// MediaPrefix は所有者のメディア用キープレフィックス（例: companies/{id}/media）を返す。
func MediaPrefix(owner model.OwnerKind, ownerID string) string {
	return fmt.Sprintf("%s/%s/media", owner, ownerID)
}

// DocumentPrefix は所有者のドキュメント用キープレフィックス（例: projects/{id}/documents）を返す。
func DocumentPrefix(owner model.OwnerKind, ownerID string) string {
	return fmt.Sprintf("%s/%s/documents", owner, ownerID)
}

// HasPrefix はキーが指定プレフィックスのディレクトリ配下にあるかどうかを返す。
func HasPrefix(key, prefix string) bool {
	return strings.HasPrefix(key, strings.TrimRight(prefix, "/")+"/")
}
