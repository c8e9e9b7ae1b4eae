package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/carwatch/internal/listing"
	"github.com/hitoshi/carwatch/internal/model"
)

// mockListingService はListingServiceInterfaceのモック実装。
type mockListingService struct {
	listFn         func(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error)
	getFn          func(ctx context.Context, id int64) (*listing.AnnotatedListing, error)
	brandsFn       func(ctx context.Context) ([]string, error)
	homeSectionsFn func(ctx context.Context, expanded bool) (*listing.Sections, error)
}

func (m *mockListingService) List(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error) {
	return m.listFn(ctx, c, limit, offset)
}

func (m *mockListingService) Get(ctx context.Context, id int64) (*listing.AnnotatedListing, error) {
	return m.getFn(ctx, id)
}

func (m *mockListingService) Brands(ctx context.Context) ([]string, error) {
	return m.brandsFn(ctx)
}

func (m *mockListingService) HomeSections(ctx context.Context, expanded bool) (*listing.Sections, error) {
	return m.homeSectionsFn(ctx, expanded)
}

func sampleAnnotated() listing.AnnotatedListing {
	return listing.AnnotatedListing{
		Listing: model.Listing{
			ID:             1,
			Make:           "Toyota",
			Model:          "Camry",
			Year:           2023,
			Price:          "$24,500",
			PredictedPrice: "$26,800",
			Mileage:        "15,000 mi",
			Location:       "Los Angeles, CA",
			Condition:      model.ConditionUsed,
			CreatedAt:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		Badge: model.DealBadgeGood,
	}
}

func newListingTestRouter(service ListingServiceInterface) http.Handler {
	h := NewListingHandler(service)
	r := chi.NewRouter()
	r.Get("/api/cars", h.ListCars)
	r.Get("/api/cars/brands", h.ListBrands)
	r.Get("/api/cars/sections", h.HomeSections)
	r.Get("/api/cars/{id}", h.GetCar)
	return r
}

func TestListCars_ReturnsListWithSummary(t *testing.T) {
	var capturedCriteria model.Criteria
	var capturedLimit, capturedOffset int

	service := &mockListingService{
		listFn: func(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error) {
			capturedCriteria = c
			capturedLimit = limit
			capturedOffset = offset
			return &listing.ListResult{
				Listings:          []listing.AnnotatedListing{sampleAnnotated()},
				TotalMatched:      1,
				GoodDealCount:     1,
				ActiveFilterCount: 2,
				Limit:             limit,
				Offset:            offset,
			}, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars?make=Toyota&max_price=30000&limit=10&offset=5&sort=price-low", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	if capturedCriteria.Make != "Toyota" {
		t.Errorf("Make = %q, want %q", capturedCriteria.Make, "Toyota")
	}
	if capturedCriteria.MaxPrice != 30000 {
		t.Errorf("MaxPrice = %d, want 30000", capturedCriteria.MaxPrice)
	}
	if capturedCriteria.Sort != model.SortPriceLow {
		t.Errorf("Sort = %q, want %q", capturedCriteria.Sort, model.SortPriceLow)
	}
	if capturedLimit != 10 || capturedOffset != 5 {
		t.Errorf("limit/offset = %d/%d, want 10/5", capturedLimit, capturedOffset)
	}

	var body listCarsResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Cars) != 1 {
		t.Fatalf("cars = %d, want 1", len(body.Cars))
	}
	if body.Cars[0].DealBadge != "good_deal" {
		t.Errorf("deal_badge = %q, want %q", body.Cars[0].DealBadge, "good_deal")
	}
	if body.TotalMatched != 1 || body.GoodDealCount != 1 || body.ActiveFilterCount != 2 {
		t.Errorf("summary = %d/%d/%d, want 1/1/2", body.TotalMatched, body.GoodDealCount, body.ActiveFilterCount)
	}
	if body.Limit != 10 || body.Offset != 5 {
		t.Errorf("limit/offset = %d/%d, want 10/5", body.Limit, body.Offset)
	}
}

func TestListCars_OmittedLimit_EchoesEffectiveLimit(t *testing.T) {
	// limit未指定のときはサービス層が適用したデフォルト値を返す
	service := &mockListingService{
		listFn: func(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error) {
			return &listing.ListResult{
				Listings:     []listing.AnnotatedListing{sampleAnnotated()},
				TotalMatched: 1,
				Limit:        20,
			}, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body listCarsResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Limit != 20 {
		t.Errorf("limit = %d, want 20", body.Limit)
	}
	if body.Offset != 0 {
		t.Errorf("offset = %d, want 0", body.Offset)
	}
}

func TestListCars_InvalidSort_Returns400(t *testing.T) {
	service := &mockListingService{
		listFn: func(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error) {
			return nil, model.NewInvalidSortError("cheapest")
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars?sort=cheapest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeInvalidSort {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidSort)
	}
	if body.Action == "" {
		t.Error("action should not be empty")
	}
}

func TestListCars_NonNumericPrice_Returns400(t *testing.T) {
	service := &mockListingService{
		listFn: func(ctx context.Context, c model.Criteria, limit, offset int) (*listing.ListResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars?min_price=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	var body apiErrorResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Code != model.ErrCodeInvalidPrice {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidPrice)
	}
}

func TestGetCar_ReturnsListingWithBadge(t *testing.T) {
	service := &mockListingService{
		getFn: func(ctx context.Context, id int64) (*listing.AnnotatedListing, error) {
			if id != 1 {
				t.Errorf("id = %d, want 1", id)
			}
			a := sampleAnnotated()
			return &a, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body listingResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != 1 || body.Make != "Toyota" {
		t.Errorf("unexpected listing: %+v", body)
	}
	if body.DealBadge != "good_deal" {
		t.Errorf("deal_badge = %q, want %q", body.DealBadge, "good_deal")
	}
}

func TestGetCar_NotFound_Returns404(t *testing.T) {
	service := &mockListingService{
		getFn: func(ctx context.Context, id int64) (*listing.AnnotatedListing, error) {
			return nil, model.NewListingNotFoundError(id)
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars/999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	var body apiErrorResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Code != model.ErrCodeListingNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeListingNotFound)
	}
}

func TestGetCar_NonNumericID_Returns400(t *testing.T) {
	service := &mockListingService{
		getFn: func(ctx context.Context, id int64) (*listing.AnnotatedListing, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestListBrands_ReturnsBrands(t *testing.T) {
	service := &mockListingService{
		brandsFn: func(ctx context.Context) ([]string, error) {
			return []string{"Honda", "Toyota"}, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars/brands", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string][]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body["brands"]) != 2 || body["brands"][0] != "Honda" {
		t.Errorf("brands = %v, want [Honda Toyota]", body["brands"])
	}
}

func TestHomeSections_PassesExpandedFlag(t *testing.T) {
	var capturedExpanded bool
	service := &mockListingService{
		homeSectionsFn: func(ctx context.Context, expanded bool) (*listing.Sections, error) {
			capturedExpanded = expanded
			return &listing.Sections{
				BestDeals:     []listing.AnnotatedListing{sampleAnnotated()},
				RecentlyAdded: []listing.AnnotatedListing{sampleAnnotated()},
			}, nil
		},
	}

	r := newListingTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/cars/sections?expanded=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !capturedExpanded {
		t.Error("expanded flag should be true")
	}

	var body homeSectionsResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.BestDeals) != 1 || len(body.RecentlyAdded) != 1 {
		t.Errorf("sections = %d/%d, want 1/1", len(body.BestDeals), len(body.RecentlyAdded))
	}
}
