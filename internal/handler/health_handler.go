package handler

import (
	"context"
	"net/http"
)

// Pinger はヘルスチェックで依存先の疎通を確認するインターフェース。
// *sql.DB がそのまま適合する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler はHealthHandlerを生成する。dbはnilを許容する。
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check はサービスの稼働状態を返す。
// GET /api/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
