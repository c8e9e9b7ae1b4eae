// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/carwatch/internal/model"
)

// ListingRepository はリスティングデータの永続化インターフェース。
// フィルタ・ソートはクエリエンジン（internal/query）がメモリ上で行うため、
// リポジトリは取得と登録のみを提供する。
type ListingRepository interface {
	// List はリスティング一覧を作成日時の降順で返す。
	// limitが0以下の場合はデフォルト値を適用せず全件を返す。
	List(ctx context.Context, limit, offset int) ([]model.Listing, error)

	// FindByID は指定IDのリスティングを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Listing, error)

	// FindByIDs は指定ID群のリスティングを取得する。存在しないIDは結果に含まれない。
	FindByIDs(ctx context.Context, ids []int64) ([]model.Listing, error)

	// Brands は登録済みメーカー名の一覧を昇順で返す。
	Brands(ctx context.Context) ([]string, error)

	// Create はリスティングを作成し、採番されたIDを設定する。
	Create(ctx context.Context, listing *model.Listing) error

	// UpdateImageURL はリスティングの画像URLを更新する。
	UpdateImageURL(ctx context.Context, id int64, imageURL string) error
}

// FavoriteRepository はお気に入りデータの永続化インターフェース。
// 集合セマンティクス（同一リスティングIDは高々1件）をDB制約で強制する。
type FavoriteRepository interface {
	// ListIDsByClient はクライアントのお気に入りリスティングIDを追加順で返す。
	ListIDsByClient(ctx context.Context, clientID string) ([]int64, error)

	// Exists は指定リスティングがお気に入りに含まれるか返す。
	Exists(ctx context.Context, clientID string, listingID int64) (bool, error)

	// Add はお気に入りを追加する。既に存在する場合は何もしない。
	Add(ctx context.Context, clientID string, listingID int64) error

	// Remove はお気に入りを削除する。存在しない場合は何もしない。
	Remove(ctx context.Context, clientID string, listingID int64) error
}

// WatchlistRepository はウォッチリストデータの永続化インターフェース。
type WatchlistRepository interface {
	// FindByID は指定IDのウォッチリストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Watchlist, error)

	// ListByClient はクライアントのウォッチリスト一覧を作成日時の昇順で返す。
	ListByClient(ctx context.Context, clientID string) ([]model.Watchlist, error)

	// ListActive は全クライアントのアクティブなウォッチリストを返す。
	// マッチャーワーカーの処理対象取得に使用する。
	ListActive(ctx context.Context) ([]model.Watchlist, error)

	// CountActiveByClient はクライアントのアクティブなウォッチリスト数を返す。
	CountActiveByClient(ctx context.Context, clientID string) (int, error)

	// Create はウォッチリストを作成する。
	Create(ctx context.Context, w *model.Watchlist) error

	// UpdateActive はアクティブフラグを更新する。
	UpdateActive(ctx context.Context, id string, isActive bool) error

	// Delete は指定IDのウォッチリストを削除する。関連マッチはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ReplaceMatches はウォッチリストのマッチスナップショットを丸ごと置き換え、
	// キャッシュ済みカウントとチェック日時を同一トランザクションで更新する。
	ReplaceMatches(ctx context.Context, watchlistID string, matches []model.WatchlistMatch, newMatchCount int, checkedAt time.Time) error

	// ListMatches はウォッチリストのマッチスナップショットをスコア降順で、
	// リスティング情報とJOINして返す。
	ListMatches(ctx context.Context, watchlistID string) ([]model.WatchlistMatchWithListing, error)
}
