// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はプロフィールや会社・プロジェクトの自由記述欄からHTMLマークアップを取り除き、
// プレーンテキストとして保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去したプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicy（タグを一切許可しない）のTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、bluemondayがエスケープした実体参照を元の文字に戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// SanitizePtr はnull許容フィールド向けのSanitize。nilはnilのまま返す。
func SanitizePtr(s TextSanitizer, raw *string) *string {
	if raw == nil || s == nil {
		return raw
	}
	out := s.Sanitize(*raw)
	return &out
}
