package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/carwatch/internal/listing"
	"github.com/hitoshi/carwatch/internal/model"
)

// ListingServiceInterface はリスティングハンドラーが必要とするサービスインターフェース。
type ListingServiceInterface interface {
	// List は検索条件に従ってフィルタ・ソート済みの一覧を返す。
	List(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error)
	// Get は指定IDのリスティングをバッジ付きで返す。
	Get(ctx context.Context, id int64) (*listing.AnnotatedListing, error)
	// Brands は登録済みメーカー名の一覧を返す。
	Brands(ctx context.Context) ([]string, error)
	// HomeSections はホーム画面のセクション別ビューを返す。
	HomeSections(ctx context.Context, expanded bool) (*listing.Sections, error)
}

// ListingHandler はリスティング閲覧のHTTPハンドラー。
type ListingHandler struct {
	service ListingServiceInterface
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(service ListingServiceInterface) *ListingHandler {
	return &ListingHandler{service: service}
}

// listingResponse はリスティング情報のAPIレスポンス。
type listingResponse struct {
	ID             int64  `json:"id"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Price          string `json:"price"`
	PredictedPrice string `json:"predicted_price,omitempty"`
	Mileage        string `json:"mileage"`
	Location       string `json:"location"`
	Condition      string `json:"condition"`
	ImageURL       string `json:"image_url,omitempty"`
	Description    string `json:"description,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	DealBadge      string `json:"deal_badge,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// listCarsResponse は一覧取得のAPIレスポンス。
type listCarsResponse struct {
	Cars              []listingResponse `json:"cars"`
	TotalMatched      int               `json:"total_matched"`
	GoodDealCount     int               `json:"good_deal_count"`
	ActiveFilterCount int               `json:"active_filter_count"`
	Limit             int               `json:"limit"`
	Offset            int               `json:"offset"`
}

// homeSectionsResponse はホーム画面セクションのAPIレスポンス。
type homeSectionsResponse struct {
	BestDeals     []listingResponse `json:"best_deals"`
	RecentlyAdded []listingResponse `json:"recently_added"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListCars はリスティング一覧を取得する。
// GET /api/cars?limit&offset&q&min_price&max_price&make&condition&year&sort
func (h *ListingHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria := model.Criteria{
		Query:     q.Get("q"),
		Make:      q.Get("make"),
		Condition: model.Condition(q.Get("condition")),
		Sort:      model.SortKey(q.Get("sort")),
	}

	var err error
	if criteria.MinPrice, err = parseIntParam(q.Get("min_price")); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPriceError(q.Get("min_price")))
		return
	}
	if criteria.MaxPrice, err = parseIntParam(q.Get("max_price")); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPriceError(q.Get("max_price")))
		return
	}
	if criteria.Year, err = parseIntParam(q.Get("year")); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	limit, err := parseIntParam(q.Get("limit"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}
	offset, err := parseIntParam(q.Get("offset"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	result, err := h.service.List(r.Context(), criteria, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, listCarsResponse{
		Cars:              toListingResponses(result.Listings),
		TotalMatched:      result.TotalMatched,
		GoodDealCount:     result.GoodDealCount,
		ActiveFilterCount: result.ActiveFilterCount,
		// サービス層がデフォルト・上限を適用した実効値を返す
		Limit:  result.Limit,
		Offset: result.Offset,
	})
}

// GetCar はリスティング詳細を取得する。
// GET /api/cars/:id
func (h *ListingHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	annotated, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toListingResponse(*annotated))
}

// ListBrands は登録済みメーカー名の一覧を取得する。
// GET /api/cars/brands
func (h *ListingHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string][]string{"brands": brands})
}

// HomeSections はホーム画面のセクション別ビューを取得する。
// GET /api/cars/sections?expanded=true
func (h *ListingHandler) HomeSections(w http.ResponseWriter, r *http.Request) {
	expanded := r.URL.Query().Get("expanded") == "true"

	sections, err := h.service.HomeSections(r.Context(), expanded)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, homeSectionsResponse{
		BestDeals:     toListingResponses(sections.BestDeals),
		RecentlyAdded: toListingResponses(sections.RecentlyAdded),
	})
}

// --- ヘルパー関数 ---

// parseIntParam はクエリパラメータを整数に変換する。空文字列は0を返す。
func parseIntParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// toListingResponse はAnnotatedListingからAPIレスポンスに変換する。
func toListingResponse(a listing.AnnotatedListing) listingResponse {
	return listingResponse{
		ID:             a.ID,
		Make:           a.Make,
		Model:          a.Model,
		Year:           a.Year,
		Price:          a.Price,
		PredictedPrice: a.PredictedPrice,
		Mileage:        a.Mileage,
		Location:       a.Location,
		Condition:      string(a.Condition),
		ImageURL:       a.ImageURL,
		Description:    a.Description,
		SourceURL:      a.SourceURL,
		DealBadge:      string(a.Badge),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toListingResponses(listings []listing.AnnotatedListing) []listingResponse {
	results := make([]listingResponse, len(listings))
	for i, a := range listings {
		results[i] = toListingResponse(a)
	}
	return results
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// newInvalidRequestError はリクエスト形式不正の汎用エラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストの解析に失敗しました。",
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeListingNotFound, model.ErrCodeWatchlistNotFound:
		return http.StatusNotFound
	case model.ErrCodeWatchlistLimit:
		return http.StatusConflict
	case model.ErrCodeInvalidSort,
		model.ErrCodeInvalidCondition,
		model.ErrCodeInvalidPrice,
		model.ErrCodeInvalidListing,
		model.ErrCodeInvalidWatchlist,
		model.ErrCodeInvalidYearRange,
		model.ErrCodeInvalidFeatures,
		model.ErrCodeInvalidMessage,
		model.ErrCodeClientRequired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
