// Package query はリスティングのフィルタ・ソート・派生分類のクエリエンジンを提供する。
// すべての操作はイミュータブルな入力に対する純粋関数で、副作用を持たない。
package query

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/carwatch/internal/model"
)

// DefaultSectionSize はホーム画面セクションの表示件数（展開前）。
const DefaultSectionSize = 4

// ParsePrice は表示形式の価格文字列（例: "$24,500"）を整数にパースする。
// 通貨記号と桁区切りを含む非数字文字をすべて除去し、残りを10進整数として解釈する。
// 数字が1桁も残らない場合はINVALID_PRICEエラーを返す。
// パース不能なレコードは価格条件付きクエリから除外する（クラッシュさせない）のが呼び出し側の契約。
func ParsePrice(display string) (int, error) {
	var b strings.Builder
	for _, r := range display {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, model.NewInvalidPriceError(display)
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, model.NewInvalidPriceError(display)
	}
	return n, nil
}

// Matches はリスティングが検索条件のすべての述語を満たすか判定する。
// 述語はすべてAND結合で、ORが許されるのはフリーテキストのメーカー+モデル照合と
// 所在地照合の間のみ。
// 価格条件（MinPriceまたはMaxPrice）が指定されていて価格がパース不能な場合は
// マッチしない扱いとする。
func Matches(l model.Listing, c model.Criteria) bool {
	if !matchesQuery(l, c.Query) {
		return false
	}

	if c.MinPrice > 0 || c.MaxPrice > 0 {
		price, err := ParsePrice(l.Price)
		if err != nil {
			return false
		}
		if price < c.MinPrice {
			return false
		}
		max := c.MaxPrice
		if max == 0 {
			max = math.MaxInt
		}
		if price > max {
			return false
		}
	}

	if c.Make != "" && c.Make != l.Make {
		return false
	}
	if c.Condition != "" && c.Condition != l.Condition {
		return false
	}
	if c.Year != 0 && c.Year != l.Year {
		return false
	}

	return true
}

// matchesQuery はフリーテキスト照合を行う。
// 空クエリは全件マッチ。それ以外は "make model" の小文字連結、
// または所在地の小文字表現に部分文字列として含まれる場合にマッチする。
func matchesQuery(l model.Listing, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	name := strings.ToLower(l.Make + " " + l.Model)
	return strings.Contains(name, q) || strings.Contains(strings.ToLower(l.Location), q)
}

// Filter は検索条件を満たすリスティングのみを入力順を保って返す。
func Filter(listings []model.Listing, c model.Criteria) []model.Listing {
	result := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if Matches(l, c) {
			result = append(result, l)
		}
	}
	return result
}

// SortListings はソート種別に従った新しいスライスを返す。入力は変更しない。
// 安定ソートを使用し、キーが等しい要素は入力の相対順序を保つ。
// 価格ソートでパース不能な価格は末尾に寄せる。
func SortListings(listings []model.Listing, key model.SortKey) []model.Listing {
	sorted := make([]model.Listing, len(listings))
	copy(sorted, listings)

	less := func(a, b model.Listing) bool { return a.Year > b.Year } // newest
	switch key {
	case model.SortOldest:
		less = func(a, b model.Listing) bool { return a.Year < b.Year }
	case model.SortPriceLow:
		less = func(a, b model.Listing) bool {
			pa, pb, ok := comparablePrices(a, b)
			if !ok {
				return pb < 0 && pa >= 0
			}
			return pa < pb
		}
	case model.SortPriceHigh:
		less = func(a, b model.Listing) bool {
			pa, pb, ok := comparablePrices(a, b)
			if !ok {
				return pb < 0 && pa >= 0
			}
			return pa > pb
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// comparablePrices は2件の価格をパースして返す。
// どちらかがパース不能な場合はok=falseとし、不能側を-1で示す。
func comparablePrices(a, b model.Listing) (pa, pb int, ok bool) {
	pa, errA := ParsePrice(a.Price)
	pb, errB := ParsePrice(b.Price)
	if errA != nil {
		pa = -1
	}
	if errB != nil {
		pb = -1
	}
	return pa, pb, errA == nil && errB == nil
}

// ClassifyDeal はリスティングの価格評価バッジを判定する。
// 掲載価格 < 予測価格 → Good Deal、掲載価格 > 予測価格 → Above Market、
// 価格一致または予測価格未設定・パース不能 → バッジなし。
// バッジはdifference = 予測価格 - 掲載価格 の符号のみで決まり、高々1つ。
func ClassifyDeal(l model.Listing) model.DealBadge {
	if l.PredictedPrice == "" {
		return model.DealBadgeNone
	}
	price, err := ParsePrice(l.Price)
	if err != nil {
		return model.DealBadgeNone
	}
	predicted, err := ParsePrice(l.PredictedPrice)
	if err != nil {
		return model.DealBadgeNone
	}
	switch {
	case price < predicted:
		return model.DealBadgeGood
	case price > predicted:
		return model.DealBadgeAboveMarket
	default:
		return model.DealBadgeNone
	}
}

// IsGoodDeal は掲載価格が予測価格を下回るか判定する。
func IsGoodDeal(l model.Listing) bool {
	return ClassifyDeal(l) == model.DealBadgeGood
}

// GoodDeals はGood Dealと分類されるリスティングのみを入力順を保って返す。
// サマリーバッジの件数表示にも使用する。
func GoodDeals(listings []model.Listing) []model.Listing {
	result := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if IsGoodDeal(l) {
			result = append(result, l)
		}
	}
	return result
}

// ActiveFilterCount は検索条件のうち非デフォルト値のフィールド数を返す。
// 対象はMake、Condition、Year、MinPrice、MaxPriceの5つ。
// フィルタバッジの表示専用で、挙動には影響しない。
func ActiveFilterCount(c model.Criteria) int {
	count := 0
	if c.Make != "" {
		count++
	}
	if c.Condition != "" {
		count++
	}
	if c.Year != 0 {
		count++
	}
	if c.MinPrice > 0 {
		count++
	}
	if c.MaxPrice > 0 {
		count++
	}
	return count
}

// TopN は先頭n件のサブシーケンスを返す。expandedがtrueの場合は全件を返す。
// 表示上の切り詰めヘルパーで、副作用を持たない。
func TopN(listings []model.Listing, n int, expanded bool) []model.Listing {
	if expanded || len(listings) <= n {
		return listings
	}
	return listings[:n]
}
