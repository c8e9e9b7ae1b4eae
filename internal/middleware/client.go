// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// clientIDHeader はクライアント識別子を運ぶHTTPヘッダー。
// クライアントは端末ごとに生成したIDをすべてのリクエストに付与する。
const clientIDHeader = "X-Client-ID"

// clientIDMaxLength はクライアントIDの最大長。
const clientIDMaxLength = 128

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// clientIDContextKey はリクエストコンテキストにクライアントIDを格納するためのキー。
var clientIDContextKey = contextKey("client_id")

// NewClientMiddleware はX-Client-IDヘッダーからクライアントIDを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが欠落または不正なリクエストには400 Bad Requestを返す。
func NewClientMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := strings.TrimSpace(r.Header.Get(clientIDHeader))
			if clientID == "" || len(clientID) > clientIDMaxLength {
				http.Error(w, "missing or invalid X-Client-ID header", http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), clientIDContextKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIDFromContext はリクエストコンテキストからクライアントIDを取得する。
// クライアントミドルウェアを通過したリクエストでのみ有効。
func ClientIDFromContext(ctx context.Context) (string, error) {
	clientID, ok := ctx.Value(clientIDContextKey).(string)
	if !ok || clientID == "" {
		return "", fmt.Errorf("client ID not found in context")
	}
	return clientID, nil
}

// ContextWithClientID はコンテキストにクライアントIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey, clientID)
}
