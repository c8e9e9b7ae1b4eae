package matcher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/carwatch/internal/model"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// --- モック ---

type mockListingRepo struct {
	listings []model.Listing
}

func (m *mockListingRepo) List(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	return m.listings, nil
}
func (m *mockListingRepo) FindByID(ctx context.Context, id int64) (*model.Listing, error) {
	return nil, nil
}
func (m *mockListingRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.Listing, error) {
	return nil, nil
}
func (m *mockListingRepo) Brands(ctx context.Context) ([]string, error) { return nil, nil }
func (m *mockListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	return nil
}
func (m *mockListingRepo) UpdateImageURL(ctx context.Context, id int64, imageURL string) error {
	return nil
}

type mockWatchlistRepo struct {
	replacedID    string
	replaced      []model.WatchlistMatch
	newMatchCount int
	checkedAt     time.Time
	active        []model.Watchlist
}

func (m *mockWatchlistRepo) FindByID(ctx context.Context, id string) (*model.Watchlist, error) {
	return nil, nil
}
func (m *mockWatchlistRepo) ListByClient(ctx context.Context, clientID string) ([]model.Watchlist, error) {
	return nil, nil
}
func (m *mockWatchlistRepo) ListActive(ctx context.Context) ([]model.Watchlist, error) {
	return m.active, nil
}
func (m *mockWatchlistRepo) CountActiveByClient(ctx context.Context, clientID string) (int, error) {
	return 0, nil
}
func (m *mockWatchlistRepo) Create(ctx context.Context, w *model.Watchlist) error { return nil }
func (m *mockWatchlistRepo) UpdateActive(ctx context.Context, id string, isActive bool) error {
	return nil
}
func (m *mockWatchlistRepo) Delete(ctx context.Context, id string) error { return nil }
func (m *mockWatchlistRepo) ReplaceMatches(ctx context.Context, watchlistID string, matches []model.WatchlistMatch, newMatchCount int, checkedAt time.Time) error {
	m.replacedID = watchlistID
	m.replaced = matches
	m.newMatchCount = newMatchCount
	m.checkedAt = checkedAt
	return nil
}
func (m *mockWatchlistRepo) ListMatches(ctx context.Context, watchlistID string) ([]model.WatchlistMatchWithListing, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestMatcher(listings []model.Listing, wlRepo *mockWatchlistRepo) *Matcher {
	m := NewMatcher(&mockListingRepo{listings: listings}, wlRepo, 24*time.Hour, testLogger())
	m.now = func() time.Time { return testNow }
	return m
}

// --- 条件評価 ---

func TestMatcher_Criteria(t *testing.T) {
	listing := model.Listing{
		ID: 1, Make: "Toyota", Model: "Camry", Year: 2022,
		Price: "$24,500", Location: "Los Angeles, CA", Condition: model.ConditionUsed,
	}

	tests := []struct {
		name      string
		watchlist model.Watchlist
		want      bool
	}{
		{"条件なしは全件マッチ", model.Watchlist{}, true},
		{"メーカー一致", model.Watchlist{Make: "Toyota"}, true},
		{"メーカーは大文字小文字を無視", model.Watchlist{Make: "toyota"}, true},
		{"メーカー不一致", model.Watchlist{Make: "Honda"}, false},
		{"モデルは部分一致", model.Watchlist{Model: "cam"}, true},
		{"モデル不一致", model.Watchlist{Model: "Corolla"}, false},
		{"年式範囲内", model.Watchlist{YearMin: 2020, YearMax: 2024}, true},
		{"年式下限未満", model.Watchlist{YearMin: 2023}, false},
		{"年式上限超過", model.Watchlist{YearMax: 2021}, false},
		{"価格帯内", model.Watchlist{PriceMin: 20000, PriceMax: 30000}, true},
		{"価格帯下限未満", model.Watchlist{PriceMin: 25000}, false},
		{"価格帯上限超過", model.Watchlist{PriceMax: 20000}, false},
		{"地域は部分一致", model.Watchlist{Location: "los angeles"}, true},
		{"地域不一致", model.Watchlist{Location: "Miami"}, false},
		{"状態リスト一致", model.Watchlist{Conditions: []model.Condition{model.ConditionUsed, model.ConditionNew}}, true},
		{"状態リスト不一致", model.Watchlist{Conditions: []model.Condition{model.ConditionNew}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatcher(nil, &mockWatchlistRepo{})
			if got := m.matches(listing, &tt.watchlist); got != tt.want {
				t.Errorf("matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcher_UnparseablePriceExcludedWithPriceBounds(t *testing.T) {
	listing := model.Listing{Make: "Ford", Price: "Call for price"}
	m := newTestMatcher(nil, &mockWatchlistRepo{})

	if m.matches(listing, &model.Watchlist{PriceMax: 50000}) {
		t.Error("パース不能な価格が価格帯条件にマッチしている")
	}
	if !m.matches(listing, &model.Watchlist{Make: "Ford"}) {
		t.Error("価格帯なしの条件でパース不能な価格が除外されている")
	}
}

// --- スコアリング ---

func TestScore_Range(t *testing.T) {
	listings := []model.Listing{
		{Price: "$24,500", Year: 2026, Condition: model.ConditionNew},
		{Price: "$24,500", Year: 2010, Condition: model.ConditionUsed},
		{Price: "Call for price", Year: 2000, Condition: ""},
	}
	w := &model.Watchlist{PriceMin: 20000, PriceMax: 30000}

	for _, l := range listings {
		score := Score(l, w, testNow)
		if score < 0 || score > 100 {
			t.Errorf("Score(%+v) = %d, 範囲外", l, score)
		}
	}
}

func TestScore_CheaperScoresHigher(t *testing.T) {
	w := &model.Watchlist{PriceMin: 20000, PriceMax: 30000}
	cheap := model.Listing{Price: "$21,000", Year: 2024, Condition: model.ConditionUsed}
	expensive := model.Listing{Price: "$29,000", Year: 2024, Condition: model.ConditionUsed}

	if Score(cheap, w, testNow) <= Score(expensive, w, testNow) {
		t.Errorf("安い掲載のスコアが高くない: cheap=%d expensive=%d",
			Score(cheap, w, testNow), Score(expensive, w, testNow))
	}
}

func TestScore_NewerScoresHigher(t *testing.T) {
	w := &model.Watchlist{}
	newer := model.Listing{Price: "$25,000", PredictedPrice: "$26,000", Year: 2025, Condition: model.ConditionUsed}
	older := model.Listing{Price: "$25,000", PredictedPrice: "$26,000", Year: 2018, Condition: model.ConditionUsed}

	if Score(newer, w, testNow) <= Score(older, w, testNow) {
		t.Errorf("新しい年式のスコアが高くない")
	}
}

func TestScore_Deterministic(t *testing.T) {
	l := model.Listing{Price: "$24,500", Year: 2022, Condition: model.ConditionUsed}
	w := &model.Watchlist{PriceMin: 20000, PriceMax: 30000}

	if Score(l, w, testNow) != Score(l, w, testNow) {
		t.Error("同じ入力でスコアが変わる")
	}
}

func TestDaysOnMarket(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		want      int
	}{
		{"当日", testNow, 0},
		{"3日前", testNow.Add(-72 * time.Hour), 3},
		{"未来日はゼロ", testNow.Add(24 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysOnMarket(tt.createdAt, testNow); got != tt.want {
				t.Errorf("daysOnMarket() = %d, want %d", got, tt.want)
			}
		})
	}
}

// --- Run ---

func TestMatcher_Run_SnapshotsMatches(t *testing.T) {
	listings := []model.Listing{
		{ID: 1, Make: "Toyota", Model: "Camry", Year: 2022, Price: "$24,500",
			Condition: model.ConditionUsed, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: 2, Make: "Toyota", Model: "Corolla", Year: 2021, Price: "$19,000",
			Condition: model.ConditionUsed, CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
		{ID: 3, Make: "Honda", Model: "Civic", Year: 2023, Price: "$28,900",
			Condition: model.ConditionUsed, CreatedAt: testNow},
	}
	wlRepo := &mockWatchlistRepo{}
	m := newTestMatcher(listings, wlRepo)

	w := &model.Watchlist{ID: "wl-1", Make: "Toyota"}
	if err := m.Run(context.Background(), w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if wlRepo.replacedID != "wl-1" {
		t.Errorf("replacedID = %q, want wl-1", wlRepo.replacedID)
	}
	if len(wlRepo.replaced) != 2 {
		t.Fatalf("マッチ件数 = %d, want 2", len(wlRepo.replaced))
	}
	// 24時間以内に登録された掲載のみ新着として数える
	if wlRepo.newMatchCount != 1 {
		t.Errorf("newMatchCount = %d, want 1", wlRepo.newMatchCount)
	}
	for _, match := range wlRepo.replaced {
		if match.Score < 0 || match.Score > 100 {
			t.Errorf("Score = %d, 範囲外", match.Score)
		}
	}
	if wlRepo.replaced[1].DaysOnMarket != 10 {
		t.Errorf("DaysOnMarket = %d, want 10", wlRepo.replaced[1].DaysOnMarket)
	}
}

func TestMatcher_Run_EmptySnapshotWhenNoMatches(t *testing.T) {
	listings := []model.Listing{
		{ID: 1, Make: "Honda", Model: "Civic", Year: 2023, Price: "$28,900", Condition: model.ConditionUsed},
	}
	wlRepo := &mockWatchlistRepo{}
	m := newTestMatcher(listings, wlRepo)

	w := &model.Watchlist{ID: "wl-1", Make: "Toyota"}
	if err := m.Run(context.Background(), w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(wlRepo.replaced) != 0 {
		t.Errorf("マッチ件数 = %d, want 0", len(wlRepo.replaced))
	}
	if wlRepo.replacedID != "wl-1" {
		t.Errorf("マッチなしでもスナップショットを置き換える")
	}
}

// --- Scheduler ---

type mockMatcherService struct {
	ran []string
}

func (m *mockMatcherService) Run(ctx context.Context, w *model.Watchlist) error {
	m.ran = append(m.ran, w.ID)
	return nil
}

func TestScheduler_RunOnce(t *testing.T) {
	wlRepo := &mockWatchlistRepo{
		active: []model.Watchlist{{ID: "wl-1"}, {ID: "wl-2"}},
	}
	svc := &mockMatcherService{}
	s := NewScheduler(wlRepo, svc, testLogger(), nil, 1)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(svc.ran) != 2 {
		t.Errorf("実行件数 = %d, want 2", len(svc.ran))
	}
}

func TestScheduler_RunOnce_NoActiveWatchlists_MatcherMock(t *testing.T) {
	svc := &mockMatcherService{}
	s := NewScheduler(&mockWatchlistRepo{}, svc, testLogger(), nil, 5)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(svc.ran) != 0 {
		t.Errorf("アクティブなしで実行された: %v", svc.ran)
	}
}
