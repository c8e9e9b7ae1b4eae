// Package model はドメインモデルを定義する。
package model

import "time"

// Listing は販売中の車両1件を表す。
// 価格フィールドはデータソース由来の表示形式（例: "$24,500"）のまま保持し、
// 数値比較が必要な箇所でクエリエンジンがパースする。
type Listing struct {
	ID             int64
	Make           string
	Model          string
	Year           int
	Price          string // 表示形式の価格（例: "$24,500"）
	PredictedPrice string // 予測価格。未設定の場合は空文字列
	Mileage        string // 走行距離の表示文字列、または新車を表す "New"
	Location       string
	Condition      Condition
	ImageURL       string
	Description    string // サニタイズ済みHTML
	SourceURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Condition は車両の状態区分を表す。
type Condition string

const (
	// ConditionNew は新車を表す。
	ConditionNew Condition = "New"
	// ConditionUsed は中古車を表す。
	ConditionUsed Condition = "Used"
	// ConditionCertified は認定中古車を表す。
	ConditionCertified Condition = "Certified Pre-Owned"
)

// ValidConditions は有効な状態区分のセット。
var ValidConditions = map[Condition]bool{
	ConditionNew:       true,
	ConditionUsed:      true,
	ConditionCertified: true,
}

// SortKey はリスティング一覧のソート種別を表す。
type SortKey string

const (
	// SortNewest は年式の降順ソート（デフォルト）。
	SortNewest SortKey = "newest"
	// SortOldest は年式の昇順ソート。
	SortOldest SortKey = "oldest"
	// SortPriceLow は価格の昇順ソート。
	SortPriceLow SortKey = "price-low"
	// SortPriceHigh は価格の降順ソート。
	SortPriceHigh SortKey = "price-high"
)

// ValidSortKeys は有効なソート種別のセット。
var ValidSortKeys = map[SortKey]bool{
	SortNewest:    true,
	SortOldest:    true,
	SortPriceLow:  true,
	SortPriceHigh: true,
}

// Criteria はユーザーが編集する検索条件を表す。
// 画面マウント時にゼロ値で生成され、永続化されない一時的な状態。
type Criteria struct {
	Query     string    // フリーテキスト検索。空の場合は全件マッチ
	MinPrice  int       // 最低価格。0はデフォルト（下限なし）
	MaxPrice  int       // 最高価格。0はデフォルト（上限なし）
	Make      string    // メーカー完全一致。空の場合は全件マッチ
	Condition Condition // 状態区分完全一致。空の場合は全件マッチ
	Year      int       // 年式完全一致。0の場合は全件マッチ
	Sort      SortKey   // ソート種別。空の場合はnewest
}

// DealBadge はリスティングの価格評価バッジを表す。
type DealBadge string

const (
	// DealBadgeGood は掲載価格が予測価格を下回る状態（Good Deal）。
	DealBadgeGood DealBadge = "good_deal"
	// DealBadgeAboveMarket は掲載価格が予測価格を上回る状態。
	DealBadgeAboveMarket DealBadge = "above_market"
	// DealBadgeNone はバッジなし（価格一致または予測価格未設定）。
	DealBadgeNone DealBadge = ""
)
