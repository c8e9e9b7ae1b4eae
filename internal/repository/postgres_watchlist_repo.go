package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/carwatch/internal/model"
)

// watchlistColumns はwatchlistsテーブルのSELECT対象カラム。
const watchlistColumns = `id, client_id, title, make, model, year_min, year_max,
	        price_min, price_max, location, conditions, is_active,
	        match_count, new_match_count, last_checked_at, created_at, updated_at`

// PostgresWatchlistRepo はPostgreSQLを使用したウォッチリストリポジトリ。
type PostgresWatchlistRepo struct {
	db *sql.DB
}

// NewPostgresWatchlistRepo はPostgresWatchlistRepoを生成する。
func NewPostgresWatchlistRepo(db *sql.DB) *PostgresWatchlistRepo {
	return &PostgresWatchlistRepo{db: db}
}

// FindByID は指定IDのウォッチリストを取得する。見つからない場合はnilを返す。
func (r *PostgresWatchlistRepo) FindByID(ctx context.Context, id string) (*model.Watchlist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlists WHERE id = $1`, id)

	w, err := scanWatchlist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	return w, nil
}

// ListByClient はクライアントのウォッチリスト一覧を作成日時の昇順で返す。
func (r *PostgresWatchlistRepo) ListByClient(ctx context.Context, clientID string) ([]model.Watchlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlists WHERE client_id = $1 ORDER BY created_at, id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanWatchlists(rows)
}

// ListActive は全クライアントのアクティブなウォッチリストを返す。
func (r *PostgresWatchlistRepo) ListActive(ctx context.Context) ([]model.Watchlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlists WHERE is_active = true ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("アクティブウォッチリストの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanWatchlists(rows)
}

// CountActiveByClient はクライアントのアクティブなウォッチリスト数を返す。
func (r *PostgresWatchlistRepo) CountActiveByClient(ctx context.Context, clientID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchlists WHERE client_id = $1 AND is_active = true`,
		clientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アクティブウォッチリスト数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Create はウォッチリストを作成する。
func (r *PostgresWatchlistRepo) Create(ctx context.Context, w *model.Watchlist) error {
	conditions := make([]string, len(w.Conditions))
	for i, c := range w.Conditions {
		conditions[i] = string(c)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watchlists (id, client_id, title, make, model, year_min, year_max,
		                         price_min, price_max, location, conditions, is_active,
		                         match_count, new_match_count, last_checked_at,
		                         created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		w.ID, w.ClientID, w.Title, w.Make, w.Model, w.YearMin, w.YearMax,
		w.PriceMin, w.PriceMax, w.Location, pq.Array(conditions), w.IsActive,
		w.MatchCount, w.NewMatchCount, w.LastCheckedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ウォッチリストの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateActive はアクティブフラグを更新する。
func (r *PostgresWatchlistRepo) UpdateActive(ctx context.Context, id string, isActive bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE watchlists SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, isActive,
	)
	if err != nil {
		return fmt.Errorf("アクティブフラグの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのウォッチリストを削除する。関連マッチはCASCADE削除される。
func (r *PostgresWatchlistRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ウォッチリストの削除に失敗しました: %w", err)
	}
	return nil
}

// ReplaceMatches はウォッチリストのマッチスナップショットを丸ごと置き換え、
// キャッシュ済みカウントとチェック日時を同一トランザクションで更新する。
func (r *PostgresWatchlistRepo) ReplaceMatches(
	ctx context.Context,
	watchlistID string,
	matches []model.WatchlistMatch,
	newMatchCount int,
	checkedAt time.Time,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM watchlist_matches WHERE watchlist_id = $1`, watchlistID); err != nil {
		return fmt.Errorf("既存マッチの削除に失敗しました: %w", err)
	}

	for _, m := range matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlist_matches (watchlist_id, listing_id, score, days_on_market, matched_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			watchlistID, m.ListingID, m.Score, m.DaysOnMarket, m.MatchedAt,
		); err != nil {
			return fmt.Errorf("マッチの保存に失敗しました: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE watchlists
		 SET match_count = $2, new_match_count = $3, last_checked_at = $4, updated_at = now()
		 WHERE id = $1`,
		watchlistID, len(matches), newMatchCount, checkedAt,
	); err != nil {
		return fmt.Errorf("マッチカウントの更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListMatches はウォッチリストのマッチスナップショットをスコア降順で、
// リスティング情報とJOINして返す。
func (r *PostgresWatchlistRepo) ListMatches(ctx context.Context, watchlistID string) ([]model.WatchlistMatchWithListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.watchlist_id, m.listing_id, m.score, m.days_on_market, m.matched_at,
		        l.id, l.make, l.model, l.year, l.price, l.predicted_price, l.mileage,
		        l.location, l.condition, l.image_url, l.description, l.source_url,
		        l.created_at, l.updated_at
		 FROM watchlist_matches m
		 JOIN listings l ON l.id = m.listing_id
		 WHERE m.watchlist_id = $1
		 ORDER BY m.score DESC, m.listing_id`,
		watchlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.WatchlistMatchWithListing
	for rows.Next() {
		var mwl model.WatchlistMatchWithListing
		var predictedPrice sql.NullString
		var condition string

		if err := rows.Scan(
			&mwl.WatchlistID, &mwl.ListingID, &mwl.Score, &mwl.DaysOnMarket, &mwl.MatchedAt,
			&mwl.Listing.ID, &mwl.Listing.Make, &mwl.Listing.Model, &mwl.Listing.Year,
			&mwl.Listing.Price, &predictedPrice, &mwl.Listing.Mileage,
			&mwl.Listing.Location, &condition, &mwl.Listing.ImageURL,
			&mwl.Listing.Description, &mwl.Listing.SourceURL,
			&mwl.Listing.CreatedAt, &mwl.Listing.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("マッチ行の読み取りに失敗しました: %w", err)
		}

		mwl.Listing.PredictedPrice = nullStringValue(predictedPrice)
		mwl.Listing.Condition = model.Condition(condition)
		results = append(results, mwl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マッチ一覧の走査に失敗しました: %w", err)
	}

	return results, nil
}

// scanWatchlist は1行をmodel.Watchlistに読み取る。
func scanWatchlist(row rowScanner) (*model.Watchlist, error) {
	w := &model.Watchlist{}
	var conditions pq.StringArray
	var lastCheckedAt sql.NullTime

	err := row.Scan(
		&w.ID, &w.ClientID, &w.Title, &w.Make, &w.Model, &w.YearMin, &w.YearMax,
		&w.PriceMin, &w.PriceMax, &w.Location, &conditions, &w.IsActive,
		&w.MatchCount, &w.NewMatchCount, &lastCheckedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Conditions = make([]model.Condition, len(conditions))
	for i, c := range conditions {
		w.Conditions[i] = model.Condition(c)
	}
	if lastCheckedAt.Valid {
		w.LastCheckedAt = &lastCheckedAt.Time
	}
	return w, nil
}

// scanWatchlists は複数行をmodel.Watchlistスライスに読み取る。
func scanWatchlists(rows *sql.Rows) ([]model.Watchlist, error) {
	var watchlists []model.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, fmt.Errorf("ウォッチリスト行の読み取りに失敗しました: %w", err)
		}
		watchlists = append(watchlists, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の走査に失敗しました: %w", err)
	}
	return watchlists, nil
}

// compile-time interface check
var _ WatchlistRepository = (*PostgresWatchlistRepo)(nil)
