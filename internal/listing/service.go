// Package listing はリスティング閲覧のドメインロジックを提供する。
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/query"
	"github.com/hitoshi/carwatch/internal/repository"
)

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 20

// maxListLimit は一覧取得の最大件数。
const maxListLimit = 100

// QueryMetrics はクエリエンジンの計測インターフェース。
type QueryMetrics interface {
	RecordQueryLatency(duration time.Duration)
}

// Service はリスティング閲覧のサービス層。
// リポジトリから全件を読み込み、クエリエンジンでフィルタ・ソート・注釈を行う。
// 価格は表示形式文字列のまま保持されるため、数値比較はエンジン側で行う。
type Service struct {
	listingRepo repository.ListingRepository
	metrics     QueryMetrics
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(listingRepo repository.ListingRepository, metrics QueryMetrics) *Service {
	return &Service{
		listingRepo: listingRepo,
		metrics:     metrics,
	}
}

// AnnotatedListing はリスティングと価格評価バッジを結合したドメインオブジェクト。
type AnnotatedListing struct {
	model.Listing
	Badge model.DealBadge
}

// ListResult はListの戻り値。
type ListResult struct {
	Listings          []AnnotatedListing
	TotalMatched      int // limit適用前のマッチ件数
	GoodDealCount     int // マッチ件数のうちGood Dealの件数（サマリーバッジ用）
	ActiveFilterCount int
	Limit             int // デフォルト・上限適用後の実効limit
	Offset            int
}

// Sections はホーム画面のセクション別ビュー。
type Sections struct {
	BestDeals     []AnnotatedListing
	RecentlyAdded []AnnotatedListing
}

// List は検索条件に従ってフィルタ・ソート・注釈済みの一覧を返す。
// limitが0以下の場合はデフォルト値、最大値を超える場合は最大値を適用する。
func (s *Service) List(ctx context.Context, c model.Criteria, limit, offset int) (*ListResult, error) {
	if c.Sort == "" {
		c.Sort = model.SortNewest
	}
	if !model.ValidSortKeys[c.Sort] {
		return nil, model.NewInvalidSortError(string(c.Sort))
	}
	if c.Condition != "" && !model.ValidConditions[c.Condition] {
		return nil, model.NewInvalidConditionError(string(c.Condition))
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	all, err := s.listingRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("リスティングの読み込みに失敗しました: %w", err)
	}

	start := time.Now()
	matched := query.Filter(all, c)
	goodDeals := len(query.GoodDeals(matched))
	sorted := query.SortListings(matched, c.Sort)
	if s.metrics != nil {
		s.metrics.RecordQueryLatency(time.Since(start))
	}

	// ページング
	if offset >= len(sorted) {
		sorted = nil
	} else {
		sorted = sorted[offset:]
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return &ListResult{
		Listings:          annotate(sorted),
		TotalMatched:      len(matched),
		GoodDealCount:     goodDeals,
		ActiveFilterCount: query.ActiveFilterCount(c),
		Limit:             limit,
		Offset:            offset,
	}, nil
}

// Get は指定IDのリスティングをバッジ付きで返す。
// 見つからない場合はLISTING_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*AnnotatedListing, error) {
	l, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, model.NewListingNotFoundError(id)
	}

	return &AnnotatedListing{
		Listing: *l,
		Badge:   query.ClassifyDeal(*l),
	}, nil
}

// Brands は登録済みメーカー名の一覧を返す。
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return s.listingRepo.Brands(ctx)
}

// HomeSections はホーム画面のセクション別ビューを返す。
// expandedがfalseの場合は各セクション先頭4件に切り詰める。
func (s *Service) HomeSections(ctx context.Context, expanded bool) (*Sections, error) {
	all, err := s.listingRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("リスティングの読み込みに失敗しました: %w", err)
	}

	bestDeals := query.GoodDeals(all)
	recentlyAdded := query.SortListings(all, model.SortNewest)

	return &Sections{
		BestDeals:     annotate(query.TopN(bestDeals, query.DefaultSectionSize, expanded)),
		RecentlyAdded: annotate(query.TopN(recentlyAdded, query.DefaultSectionSize, expanded)),
	}, nil
}

// annotate はリスティング列に価格評価バッジを付与する。
func annotate(listings []model.Listing) []AnnotatedListing {
	result := make([]AnnotatedListing, len(listings))
	for i, l := range listings {
		result[i] = AnnotatedListing{
			Listing: l,
			Badge:   query.ClassifyDeal(l),
		}
	}
	return result
}
