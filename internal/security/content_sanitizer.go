// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はフィードバックのコメントと管理者の返信をサニタイズし、
// 管理画面に表示される利用者投稿からのXSSを防ぐ。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は利用者投稿テキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizer interface {
	// SanitizeComment はフィードバックのコメントをサニタイズする。
	// 許可タグ（p, br, strong, em, ul, ol, li）のみを通過させ、
	// script, iframe, styleタグ、リンク、画像およびon*イベント属性を除去する。
	SanitizeComment(raw string) string

	// SanitizeReply は管理者の返信をサニタイズする。
	// すべてのタグを除去し、前後の空白を取り除いたテキストを返す。
	SanitizeReply(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	comment *bluemonday.Policy
	reply   *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - コメント: p, br, strong, em, ul, ol, li のみ許可。属性は一切許可しない
//   - 返信: StrictPolicy（全タグ除去）
func NewContentSanitizer() *contentSanitizer {
	comment := bluemonday.NewPolicy()
	comment.AllowElements(
		"p", "br",
		"strong", "em",
		"ul", "ol", "li",
	)

	return &contentSanitizer{
		comment: comment,
		reply:   bluemonday.StrictPolicy(),
	}
}

// SanitizeComment はコメントをサニタイズする。
func (s *contentSanitizer) SanitizeComment(raw string) string {
	return s.comment.Sanitize(raw)
}

// SanitizeReply は返信をサニタイズする。
func (s *contentSanitizer) SanitizeReply(raw string) string {
	return strings.TrimSpace(s.reply.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizer = (*contentSanitizer)(nil)
