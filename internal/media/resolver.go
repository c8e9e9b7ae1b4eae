// Package media はリスティング掲載元ページからの画像解決を提供する。
package media

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// SSRFValidator はSSRF防止機能のインターフェース。
// internal/securityのSSRFGuardServiceが実装する。
type SSRFValidator interface {
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
	ValidateURL(rawURL string) error
}

// ImageResolverService は掲載元ページからの画像URL解決のインターフェース。
type ImageResolverService interface {
	// ResolveImage は掲載元ページのog:imageメタタグから画像URLを解決する。
	// 解決できない場合は空文字列を返す（エラーは返さない）。
	ResolveImage(ctx context.Context, sourceURL string) string
}

// ImageResolver はImageResolverServiceの実装。
// 掲載元ページのHTMLを取得してog:imageメタタグを探す。
// 取得失敗・パース失敗・メタタグ不在はすべて空文字列として扱い、
// 取り込み処理を失敗させることはない。
type ImageResolver struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

var _ ImageResolverService = (*ImageResolver)(nil)

// NewImageResolver はImageResolverの新しいインスタンスを生成する。
func NewImageResolver(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *ImageResolver {
	return &ImageResolver{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// ResolveImage は掲載元ページのog:imageメタタグから画像URLを解決する。
func (r *ImageResolver) ResolveImage(ctx context.Context, sourceURL string) string {
	if sourceURL == "" {
		return ""
	}

	// SSRF検証
	if err := r.ssrfGuard.ValidateURL(sourceURL); err != nil {
		slog.Warn("画像解決: SSRFブロック", "url", sourceURL, "error", err)
		return ""
	}

	client := r.ssrfGuard.NewSafeClient(r.timeout, r.maxSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		slog.Warn("画像解決: リクエスト作成失敗", "url", sourceURL, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", "Carwatch/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("画像解決: HTTPリクエスト失敗", "url", sourceURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像解決: HTTPステータス異常", "url", sourceURL, "status", resp.StatusCode)
		return ""
	}

	imageURL := extractOGImage(io.LimitReader(resp.Body, r.maxSize))
	if imageURL == "" {
		return ""
	}

	// 解決した画像URL自体も安全なURLであることを確認する
	if err := r.ssrfGuard.ValidateURL(imageURL); err != nil {
		slog.Warn("画像解決: 解決先URLをブロック", "url", imageURL, "error", err)
		return ""
	}

	return imageURL
}

// extractOGImage はHTMLからog:imageメタタグのcontent属性を抽出する。
// トークナイザーでheadを走査し、最初に見つかったog:imageを返す。
func extractOGImage(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// EOFまたはパースエラー
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data == "body" {
				// og:imageはhead内にあるのでbody以降は探さない
				return ""
			}
			if token.Data != "meta" {
				continue
			}

			var property, content string
			for _, attr := range token.Attr {
				switch strings.ToLower(attr.Key) {
				case "property", "name":
					property = strings.ToLower(attr.Val)
				case "content":
					content = attr.Val
				}
			}
			if property == "og:image" && content != "" {
				return content
			}
		}
	}
}
