// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService は取り込んだリスティングの説明文HTMLを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService はリスティング説明文のサニタイズ機能の
// インターフェースを定義する。取り込み時の保存前に使用される。
type DescriptionSanitizerService interface {
	// Sanitize は説明文HTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, strong, em）のみを通過させ、
	// script, iframe, style, img, aタグおよびon*イベント属性を除去する。
	// 説明文にリンクや画像は持たせない。画像はimage_urlフィールドで扱う。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

var _ DescriptionSanitizerService = (*descriptionSanitizer)(nil)

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em（属性はすべて除去）
//   - 禁止タグ: script, iframe, style, img, a および全てのon*イベント属性
//
// 説明文は短い紹介文を想定しており、リンク・画像・埋め込みは通過させない。
// 許可リストに含めないタグはbluemondayが自動的に除去する。
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &descriptionSanitizer{
		policy: p,
	}
}

// Sanitize は説明文HTMLをサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
