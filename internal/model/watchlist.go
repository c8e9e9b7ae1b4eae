// Package model はドメインモデルを定義する。
package model

import "time"

// Watchlist は保存済み検索条件とそのキャッシュ済みマッチ結果を表す。
type Watchlist struct {
	ID            string
	ClientID      string
	Title         string
	Make          string
	Model         string
	YearMin       int
	YearMax       int
	PriceMin      int
	PriceMax      int
	Location      string
	Conditions    []Condition
	IsActive      bool
	MatchCount    int
	NewMatchCount int
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WatchlistMatch はウォッチリストにマッチしたリスティングのスナップショット。
// マッチャーワーカーが計算して保存し、詳細画面はこのスナップショットのみを読む。
// リスティングを再評価してライブ表示することはない。
type WatchlistMatch struct {
	WatchlistID  string
	ListingID    int64
	Score        int // マッチ度スコア（0-100）
	DaysOnMarket int
	MatchedAt    time.Time
}

// WatchlistMatchWithListing はマッチスナップショットとリスティングを結合したモデル。
// watchlist_matchesテーブルとlistingsテーブルをJOINして取得される。
type WatchlistMatchWithListing struct {
	WatchlistMatch
	Listing Listing
}
