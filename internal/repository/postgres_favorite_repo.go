package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
// 集合セマンティクスは複合主キー (client_id, listing_id) で強制される。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// ListIDsByClient はクライアントのお気に入りリスティングIDを追加順で返す。
func (r *PostgresFavoriteRepo) ListIDsByClient(ctx context.Context, clientID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT listing_id FROM favorites WHERE client_id = $1 ORDER BY created_at, listing_id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// Exists は指定リスティングがお気に入りに含まれるか返す。
func (r *PostgresFavoriteRepo) Exists(ctx context.Context, clientID string, listingID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE client_id = $1 AND listing_id = $2)`,
		clientID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Add はお気に入りを追加する。既に存在する場合は何もしない（冪等）。
func (r *PostgresFavoriteRepo) Add(ctx context.Context, clientID string, listingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (client_id, listing_id)
		 VALUES ($1, $2)
		 ON CONFLICT (client_id, listing_id) DO NOTHING`,
		clientID, listingID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// Remove はお気に入りを削除する。存在しない場合は何もしない（冪等）。
func (r *PostgresFavoriteRepo) Remove(ctx context.Context, clientID string, listingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE client_id = $1 AND listing_id = $2`,
		clientID, listingID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
