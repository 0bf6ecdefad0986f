// Package asset はオブジェクトストレージ上のアセット参照（公開URL、オブジェクトキー）の
// 相互変換と、署名付きURLによるアップロード・読み取りの仲介を提供する。
package asset

import (
	"net/url"
	"strings"
)

// Resolver は公開ベースURLを基準にアセットURLとオブジェクトキーを変換する。
// 状態を持たず、並行利用できる。
type Resolver struct {
	publicBase string
}

// NewResolver は公開ベースURL（例: https://dxxx.cloudfront.net）からResolverを生成する。
// 末尾のスラッシュは取り除く。
func NewResolver(publicBase string) *Resolver {
	return &Resolver{publicBase: strings.TrimRight(publicBase, "/")}
}

// PublicBase は正規化済みの公開ベースURLを返す。
func (r *Resolver) PublicBase() string {
	return r.publicBase
}

// PublicURL はオブジェクトキーから公開URLを組み立てる。
// キー先頭のスラッシュは取り除く。
func (r *Resolver) PublicURL(key string) string {
	return r.publicBase + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL はアセットURLまたはキーからオブジェクトキーを取り出す。
// 絶対URLの場合はエスケープされたままのパス部分、それ以外は入力そのものを先頭スラッシュを除いて返す。
// 空の入力や空のパスの場合はfalseを返す。
//
// パーセントエンコードは解かないため、%XXを含むキーもPublicURLとの往復で変わらない。
// 公開ベースURLがパスを持つ場合（https://host/assets など）、そのパスもキーの先頭に含まれる。
func KeyFromURL(urlOrKey string) (string, bool) {
	if urlOrKey == "" {
		return "", false
	}

	if u, err := url.Parse(urlOrKey); err == nil && u.Scheme != "" && u.Host != "" {
		key := strings.TrimLeft(u.EscapedPath(), "/")
		return key, key != ""
	}

	key := strings.TrimLeft(urlOrKey, "/")
	return key, key != ""
}

// IsPublic はURLが公開ベースURL配下にあるかどうかを返す。
func (r *Resolver) IsPublic(assetURL string) bool {
	return r.publicBase != "" && strings.HasPrefix(assetURL, r.publicBase)
}

// Reconcile は保存済みのasset_urlとs3_keyから、クライアントに返す公開URLを決める。
//   - 公開ベースURL配下のURLとdata: URIはそのまま返す
//   - それ以外はs3_key、なければasset_urlから取り出したキーで公開URLを組み立てる
//   - キーが得られない場合はasset_urlをそのまま返す
func (r *Resolver) Reconcile(assetURL, s3Key string) string {
	if assetURL != "" && r.IsPublic(assetURL) {
		return assetURL
	}
	if strings.HasPrefix(assetURL, "data:") {
		return assetURL
	}

	key := s3Key
	if key == "" {
		key, _ = KeyFromURL(assetURL)
	}
	if key == "" || r.publicBase == "" {
		return assetURL
	}
	return r.PublicURL(key)
}

// ReconcilePtr はnull許容列向けのReconcile。両方nullの場合はnilを返す。
func (r *Resolver) ReconcilePtr(assetURL, s3Key *string) *string {
	a, k := deref(assetURL), deref(s3Key)
	if a == "" && k == "" {
		return assetURL
	}
	out := r.Reconcile(a, k)
	if out == "" {
		return nil
	}
	return &out
}

// ObjectKey は行が参照するオブジェクトキーを返す。s3_keyを優先し、なければURLから取り出す。
func ObjectKey(assetURL, s3Key *string) (string, bool) {
	if k := deref(s3Key); k != "" {
		return k, true
	}
	return KeyFromURL(deref(assetURL))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
