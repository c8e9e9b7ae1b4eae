package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/carwatch/internal/middleware"
	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/watchlist"
)

// WatchlistServiceInterface はウォッチリストハンドラーが必要とするサービスインターフェース。
type WatchlistServiceInterface interface {
	// Create はウォッチリストを作成する。
	Create(ctx context.Context, clientID string, params watchlist.CreateParams) (*model.Watchlist, error)
	// List はクライアントのウォッチリスト一覧を返す。
	List(ctx context.Context, clientID string) ([]model.Watchlist, error)
	// Get は指定IDのウォッチリストを返す。
	Get(ctx context.Context, clientID, id string) (*model.Watchlist, error)
	// Delete は指定IDのウォッチリストを削除する。
	Delete(ctx context.Context, clientID, id string) error
	// TryActivate はアクティブ状態の変更を試みる。
	TryActivate(ctx context.Context, clientID, id string, active bool) (*model.Watchlist, error)
	// Matches は保存済みのマッチスナップショットを返す。
	Matches(ctx context.Context, clientID, id string) ([]model.WatchlistMatchWithListing, error)
}

// WatchlistHandler はウォッチリスト管理のHTTPハンドラー。
type WatchlistHandler struct {
	service WatchlistServiceInterface
}

// NewWatchlistHandler はWatchlistHandlerを生成する。
func NewWatchlistHandler(service WatchlistServiceInterface) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

// createWatchlistRequest はウォッチリスト作成リクエストのボディ。
type createWatchlistRequest struct {
	Title      string   `json:"title"`
	Make       string   `json:"make"`
	Model      string   `json:"model"`
	YearMin    int      `json:"year_min"`
	YearMax    int      `json:"year_max"`
	PriceMin   int      `json:"price_min"`
	PriceMax   int      `json:"price_max"`
	Location   string   `json:"location"`
	Conditions []string `json:"conditions"`
}

// watchlistResponse はウォッチリスト情報のAPIレスポンス。
type watchlistResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Make          string   `json:"make,omitempty"`
	Model         string   `json:"model,omitempty"`
	YearMin       int      `json:"year_min,omitempty"`
	YearMax       int      `json:"year_max,omitempty"`
	PriceMin      int      `json:"price_min,omitempty"`
	PriceMax      int      `json:"price_max,omitempty"`
	Location      string   `json:"location,omitempty"`
	Conditions    []string `json:"conditions"`
	IsActive      bool     `json:"is_active"`
	MatchCount    int      `json:"match_count"`
	NewMatchCount int      `json:"new_match_count"`
	LastCheckedAt string   `json:"last_checked_at,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// watchlistMatchResponse はマッチスナップショット1件分のAPIレスポンス。
type watchlistMatchResponse struct {
	ListingID    int64  `json:"listing_id"`
	Score        int    `json:"score"`
	DaysOnMarket int    `json:"days_on_market"`
	MatchedAt    string `json:"matched_at"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Price        string `json:"price"`
	Mileage      string `json:"mileage"`
	Location     string `json:"location"`
	Condition    string `json:"condition"`
	ImageURL     string `json:"image_url,omitempty"`
}

// CreateWatchlist はウォッチリストを作成する。
// POST /api/watchlists
func (h *WatchlistHandler) CreateWatchlist(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	var req createWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	conditions := make([]model.Condition, len(req.Conditions))
	for i, c := range req.Conditions {
		conditions[i] = model.Condition(c)
	}

	created, err := h.service.Create(r.Context(), clientID, watchlist.CreateParams{
		Title:      req.Title,
		Make:       req.Make,
		Model:      req.Model,
		YearMin:    req.YearMin,
		YearMax:    req.YearMax,
		PriceMin:   req.PriceMin,
		PriceMax:   req.PriceMax,
		Location:   req.Location,
		Conditions: conditions,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toWatchlistResponse(created))
}

// ListWatchlists はクライアントのウォッチリスト一覧を取得する。
// GET /api/watchlists
func (h *WatchlistHandler) ListWatchlists(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	watchlists, err := h.service.List(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]watchlistResponse, len(watchlists))
	for i := range watchlists {
		results[i] = toWatchlistResponse(&watchlists[i])
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"watchlists": results})
}

// GetWatchlist はウォッチリスト詳細を取得する。
// GET /api/watchlists/:id
func (h *WatchlistHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	found, err := h.service.Get(r.Context(), clientID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toWatchlistResponse(found))
}

// DeleteWatchlist はウォッチリストを削除する。
// DELETE /api/watchlists/:id
func (h *WatchlistHandler) DeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	if err := h.service.Delete(r.Context(), clientID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActivateWatchlist はウォッチリストをアクティブにする。
// 上限超過の場合は409を返す。
// POST /api/watchlists/:id/activate
func (h *WatchlistHandler) ActivateWatchlist(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// PauseWatchlist はウォッチリストを一時停止する。一時停止は常に成功する。
// POST /api/watchlists/:id/pause
func (h *WatchlistHandler) PauseWatchlist(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *WatchlistHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	updated, err := h.service.TryActivate(r.Context(), clientID, chi.URLParam(r, "id"), active)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toWatchlistResponse(updated))
}

// ListMatches は保存済みのマッチスナップショットを取得する。
// GET /api/watchlists/:id/matches
func (h *WatchlistHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	matches, err := h.service.Matches(r.Context(), clientID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]watchlistMatchResponse, len(matches))
	for i, m := range matches {
		results[i] = watchlistMatchResponse{
			ListingID:    m.ListingID,
			Score:        m.Score,
			DaysOnMarket: m.DaysOnMarket,
			MatchedAt:    m.MatchedAt.Format(time.RFC3339),
			Make:         m.Listing.Make,
			Model:        m.Listing.Model,
			Year:         m.Listing.Year,
			Price:        m.Listing.Price,
			Mileage:      m.Listing.Mileage,
			Location:     m.Listing.Location,
			Condition:    string(m.Listing.Condition),
			ImageURL:     m.Listing.ImageURL,
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"matches": results})
}

// --- ヘルパー関数 ---

// toWatchlistResponse はmodel.WatchlistからAPIレスポンスに変換する。
func toWatchlistResponse(wl *model.Watchlist) watchlistResponse {
	conditions := make([]string, len(wl.Conditions))
	for i, c := range wl.Conditions {
		conditions[i] = string(c)
	}

	resp := watchlistResponse{
		ID:            wl.ID,
		Title:         wl.Title,
		Make:          wl.Make,
		Model:         wl.Model,
		YearMin:       wl.YearMin,
		YearMax:       wl.YearMax,
		PriceMin:      wl.PriceMin,
		PriceMax:      wl.PriceMax,
		Location:      wl.Location,
		Conditions:    conditions,
		IsActive:      wl.IsActive,
		MatchCount:    wl.MatchCount,
		NewMatchCount: wl.NewMatchCount,
		CreatedAt:     wl.CreatedAt.Format(time.RFC3339),
	}
	if wl.LastCheckedAt != nil {
		resp.LastCheckedAt = wl.LastCheckedAt.Format(time.RFC3339)
	}
	return resp
}
