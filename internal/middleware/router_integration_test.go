package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// TestRouterIntegration_HealthEndpoint_NoClientID はヘルスチェック用ルートが
// クライアントIDなしで通ることを検証する（Client ミドルウェアを適用しないグループ）。
func TestRouterIntegration_HealthEndpoint_NoClientID(t *testing.T) {
	r := chi.NewRouter()

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

// TestRouterIntegration_ClientRoute_WithMiddlewareChain は
// Client -> RateLimit のミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ClientRoute_WithMiddlewareChain(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    200,
		ChatRate:        1,
		ChatBurst:       1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	r := chi.NewRouter()

	// ヘルスチェック（クライアントID不要）
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// クライアントIDが必要なルートグループ
	r.Group(func(r chi.Router) {
		r.Use(NewClientMiddleware())
		r.Use(rl.GeneralMiddleware())

		r.Get("/api/favorites", func(w http.ResponseWriter, r *http.Request) {
			clientID, _ := ClientIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"client_id": clientID})
		})

		// チャットは専用の厳しいレート制限を重ねる
		r.Group(func(r chi.Router) {
			r.Use(rl.ChatMiddleware())
			r.Post("/api/chat/messages", func(w http.ResponseWriter, r *http.Request) {
				clientID, _ := ClientIDFromContext(r.Context())
				json.NewEncoder(w).Encode(map[string]string{"client_id": clientID, "reply": "done"})
			})
		})
	})

	// テスト1: GET /api/favorites はクライアントID付きで通る
	t.Run("GET_favorites_with_client_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		req.Header.Set("X-Client-ID", "client-router-test")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}

		var body map[string]string
		json.NewDecoder(w.Result().Body).Decode(&body)
		if body["client_id"] != "client-router-test" {
			t.Errorf("client_id = %q, want %q", body["client_id"], "client-router-test")
		}
	})

	// テスト2: GET /api/favorites はクライアントIDなしで400
	t.Run("GET_favorites_no_client_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
		}
	})

	// テスト3: POST /api/chat/messages は1回目通り、2回目はチャット制限で429
	t.Run("POST_chat_hits_chat_limit", func(t *testing.T) {
		req1 := httptest.NewRequest(http.MethodPost, "/api/chat/messages", nil)
		req1.Header.Set("X-Client-ID", "client-chat-router")
		w1 := httptest.NewRecorder()
		r.ServeHTTP(w1, req1)

		if w1.Result().StatusCode != http.StatusOK {
			t.Fatalf("first chat request: status = %d, want %d", w1.Result().StatusCode, http.StatusOK)
		}

		req2 := httptest.NewRequest(http.MethodPost, "/api/chat/messages", nil)
		req2.Header.Set("X-Client-ID", "client-chat-router")
		w2 := httptest.NewRecorder()
		r.ServeHTTP(w2, req2)

		if w2.Result().StatusCode != http.StatusTooManyRequests {
			t.Errorf("second chat request: status = %d, want %d", w2.Result().StatusCode, http.StatusTooManyRequests)
		}
	})

	// テスト4: チャット制限に達しても一般ルートには影響しない
	t.Run("general_route_unaffected_by_chat_limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		req.Header.Set("X-Client-ID", "client-chat-router")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
	})

	// テスト5: ヘルスチェックはクライアントIDなしで通る
	t.Run("health_endpoint_no_client_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
	})
}
