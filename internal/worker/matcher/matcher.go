// Package matcher はウォッチリストのマッチスナップショット計算を提供する。
// スケジューラとマッチ評価・スコアリングを含む。
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/query"
	"github.com/hitoshi/carwatch/internal/repository"
)

// スコアリングの重み。合計で最大100になる。
const (
	// 価格スコア: 条件の価格帯の中で安いほど高い
	scorePriceMax = 40
	// 年式スコア: 新しいほど高い（1年ごとに5点減）
	scoreYearMax     = 35
	scoreYearPenalty = 5
	// 状態スコア
	scoreConditionNew       = 25
	scoreConditionCertified = 20
	scoreConditionUsed      = 12
)

// MatcherMetrics はマッチサイクルの計測インターフェース。
type MatcherMetrics interface {
	RecordMatchCycle(duration time.Duration, watchlistCount int)
}

// Matcher は1件のウォッチリストに対するマッチ評価を行う。
type Matcher struct {
	listingRepo   repository.ListingRepository
	watchlistRepo repository.WatchlistRepository
	// newMatchWindow はこの期間内に登録されたリスティングを新着マッチとして数える
	newMatchWindow time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewMatcher はMatcherの新しいインスタンスを生成する。
func NewMatcher(
	listingRepo repository.ListingRepository,
	watchlistRepo repository.WatchlistRepository,
	newMatchWindow time.Duration,
	logger *slog.Logger,
) *Matcher {
	return &Matcher{
		listingRepo:    listingRepo,
		watchlistRepo:  watchlistRepo,
		newMatchWindow: newMatchWindow,
		logger:         logger,
		now:            time.Now,
	}
}

// Run は1件のウォッチリストを評価し、マッチスナップショットを置き換える。
// キャッシュ済みマッチ数・新着数・チェック日時も同時に更新される。
func (m *Matcher) Run(ctx context.Context, w *model.Watchlist) error {
	listings, err := m.listingRepo.List(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("リスティング一覧の取得に失敗しました: %w", err)
	}

	now := m.now()
	var matches []model.WatchlistMatch
	newCount := 0

	for _, l := range listings {
		if !m.matches(l, w) {
			continue
		}

		matches = append(matches, model.WatchlistMatch{
			WatchlistID:  w.ID,
			ListingID:    l.ID,
			Score:        Score(l, w, now),
			DaysOnMarket: daysOnMarket(l.CreatedAt, now),
			MatchedAt:    now,
		})

		if now.Sub(l.CreatedAt) <= m.newMatchWindow {
			newCount++
		}
	}

	if err := m.watchlistRepo.ReplaceMatches(ctx, w.ID, matches, newCount, now); err != nil {
		return fmt.Errorf("マッチスナップショットの保存に失敗しました: %w", err)
	}

	m.logger.Info("ウォッチリストのマッチを更新しました",
		slog.String("watchlist_id", w.ID),
		slog.Int("match_count", len(matches)),
		slog.Int("new_match_count", newCount),
	)

	return nil
}

// matches はリスティングがウォッチリストの保存条件を満たすか判定する。
// 条件はすべてAND結合。未指定のフィールドは制約しない。
func (m *Matcher) matches(l model.Listing, w *model.Watchlist) bool {
	if w.Make != "" && !strings.EqualFold(l.Make, w.Make) {
		return false
	}
	if w.Model != "" && !strings.Contains(strings.ToLower(l.Model), strings.ToLower(w.Model)) {
		return false
	}
	if w.YearMin > 0 && l.Year < w.YearMin {
		return false
	}
	if w.YearMax > 0 && l.Year > w.YearMax {
		return false
	}
	if w.Location != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(w.Location)) {
		return false
	}
	if len(w.Conditions) > 0 && !containsCondition(w.Conditions, l.Condition) {
		return false
	}

	// 価格帯が指定されている場合、パースできない価格は除外
	if w.PriceMin > 0 || w.PriceMax > 0 {
		price, err := query.ParsePrice(l.Price)
		if err != nil {
			return false
		}
		if w.PriceMin > 0 && price < w.PriceMin {
			return false
		}
		if w.PriceMax > 0 && price > w.PriceMax {
			return false
		}
	}

	return true
}

// Score はマッチ度スコア（0-100）を計算する。
// 価格の割安さ、年式の新しさ、車両状態の3要素を重み付けして合算する。
// 同じリスティング・条件・基準時刻には常に同じスコアを返す。
func Score(l model.Listing, w *model.Watchlist, now time.Time) int {
	score := priceScore(l, w) + yearScore(l, now) + conditionScore(l.Condition)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// priceScore は価格の割安さを評価する（0-40）。
// 条件に価格帯があれば帯の中での位置で評価し、なければディール分類で評価する。
func priceScore(l model.Listing, w *model.Watchlist) int {
	price, err := query.ParsePrice(l.Price)
	if err != nil {
		// 価格不明は中立的な低スコア
		return 10
	}

	if w.PriceMax > 0 && w.PriceMax > w.PriceMin {
		// 帯の下限に近いほど高スコア
		position := float64(w.PriceMax-price) / float64(w.PriceMax-w.PriceMin)
		if position < 0 {
			position = 0
		}
		if position > 1 {
			position = 1
		}
		return int(position * scorePriceMax)
	}

	// 価格帯の指定がない場合は予測価格との比較で評価
	if query.IsGoodDeal(l) {
		return 30
	}
	return 15
}

// yearScore は年式の新しさを評価する（0-35）。
func yearScore(l model.Listing, now time.Time) int {
	age := now.Year() - l.Year
	if age < 0 {
		age = 0
	}
	score := scoreYearMax - age*scoreYearPenalty
	if score < 0 {
		return 0
	}
	return score
}

// conditionScore は車両状態を評価する（0-25）。
func conditionScore(c model.Condition) int {
	switch c {
	case model.ConditionNew:
		return scoreConditionNew
	case model.ConditionCertified:
		return scoreConditionCertified
	case model.ConditionUsed:
		return scoreConditionUsed
	default:
		return 0
	}
}

// daysOnMarket は掲載からの経過日数を返す。
func daysOnMarket(createdAt, now time.Time) int {
	days := int(now.Sub(createdAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func containsCondition(conditions []model.Condition, c model.Condition) bool {
	for _, cond := range conditions {
		if cond == c {
			return true
		}
	}
	return false
}
