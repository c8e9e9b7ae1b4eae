package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/carwatch/internal/favorite"
	"github.com/hitoshi/carwatch/internal/middleware"
	"github.com/hitoshi/carwatch/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// Toggle はお気に入り状態を反転する。
	Toggle(ctx context.Context, clientID string, listingID int64) (*favorite.ToggleResult, error)
	// IDs はお気に入り登録済みのリスティングID一覧を返す。
	IDs(ctx context.Context, clientID string) ([]int64, error)
	// Listings はお気に入り登録済みのリスティング詳細一覧を返す。
	Listings(ctx context.Context, clientID string) ([]model.Listing, error)
}

// FavoriteHandler はお気に入り管理のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// toggleFavoriteRequest はお気に入り切り替えリクエストのボディ。
type toggleFavoriteRequest struct {
	ListingID int64 `json:"listing_id"`
}

// toggleFavoriteResponse はお気に入り切り替えのAPIレスポンス。
type toggleFavoriteResponse struct {
	ListingID int64 `json:"listing_id"`
	Favorited bool  `json:"favorited"`
}

// favoriteListingResponse はお気に入り詳細一覧の1件分。
type favoriteListingResponse struct {
	ID        int64  `json:"id"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	Price     string `json:"price"`
	Mileage   string `json:"mileage"`
	Location  string `json:"location"`
	Condition string `json:"condition"`
	ImageURL  string `json:"image_url,omitempty"`
}

// ListFavorites はお気に入り一覧を取得する。
// GET /api/favorites
// detail=true の場合はリスティング詳細付きで返す。
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	if r.URL.Query().Get("detail") == "true" {
		listings, err := h.service.Listings(r.Context(), clientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		results := make([]favoriteListingResponse, len(listings))
		for i, l := range listings {
			results[i] = favoriteListingResponse{
				ID:        l.ID,
				Make:      l.Make,
				Model:     l.Model,
				Year:      l.Year,
				Price:     l.Price,
				Mileage:   l.Mileage,
				Location:  l.Location,
				Condition: string(l.Condition),
				ImageURL:  l.ImageURL,
			}
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{"favorites": results})
		return
	}

	ids, err := h.service.IDs(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string][]int64{"ids": ids})
}

// ToggleFavoriteByBody はボディで指定されたリスティングのお気に入り状態を反転する。
// POST /api/favorites
func (h *FavoriteHandler) ToggleFavoriteByBody(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	var req toggleFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}
	if req.ListingID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	h.toggle(w, r, clientID, req.ListingID)
}

// ToggleFavorite はパスで指定されたリスティングのお気に入り状態を反転する。
// PUT /api/favorites/:id/toggle
func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewClientRequiredError())
		return
	}

	listingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	h.toggle(w, r, clientID, listingID)
}

func (h *FavoriteHandler) toggle(w http.ResponseWriter, r *http.Request, clientID string, listingID int64) {
	result, err := h.service.Toggle(r.Context(), clientID, listingID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toggleFavoriteResponse{
		ListingID: result.ListingID,
		Favorited: result.Favorited,
	})
}
