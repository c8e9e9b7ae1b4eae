package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/carwatch/internal/model"
)

// listingColumns はlistingsテーブルのSELECT対象カラム。
const listingColumns = `id, make, model, year, price, predicted_price, mileage,
	        location, condition, image_url, description, source_url,
	        created_at, updated_at`

// PostgresListingRepo はPostgreSQLを使用したリスティングリポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// List はリスティング一覧を作成日時の降順で返す。
func (r *PostgresListingRepo) List(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	argIndex := 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("リスティング一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// FindByID は指定IDのリスティングを取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id int64) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リスティングの取得に失敗しました: %w", err)
	}
	return l, nil
}

// FindByIDs は指定ID群のリスティングを取得する。存在しないIDは結果に含まれない。
// 結果はIDの昇順で返す。
func (r *PostgresListingRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("リスティングの一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// Brands は登録済みメーカー名の一覧を昇順で返す。
func (r *PostgresListingRepo) Brands(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT make FROM listings ORDER BY make`)
	if err != nil {
		return nil, fmt.Errorf("メーカー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("メーカー行の読み取りに失敗しました: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メーカー一覧の走査に失敗しました: %w", err)
	}

	return brands, nil
}

// Create はリスティングを作成し、採番されたIDを設定する。
func (r *PostgresListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO listings (make, model, year, price, predicted_price, mileage,
		                       location, condition, image_url, description, source_url,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		listing.Make, listing.Model, listing.Year, listing.Price,
		nullString(listing.PredictedPrice), listing.Mileage, listing.Location,
		string(listing.Condition), listing.ImageURL, listing.Description,
		listing.SourceURL, listing.CreatedAt, listing.UpdatedAt,
	).Scan(&listing.ID)
	if err != nil {
		return fmt.Errorf("リスティングの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateImageURL はリスティングの画像URLを更新する。
func (r *PostgresListingRepo) UpdateImageURL(ctx context.Context, id int64, imageURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE listings SET image_url = $2, updated_at = now() WHERE id = $1`,
		id, imageURL,
	)
	if err != nil {
		return fmt.Errorf("画像URLの更新に失敗しました: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanListing は1行をmodel.Listingに読み取る。
func scanListing(row rowScanner) (*model.Listing, error) {
	l := &model.Listing{}
	var predictedPrice sql.NullString
	var condition string

	err := row.Scan(
		&l.ID, &l.Make, &l.Model, &l.Year, &l.Price, &predictedPrice,
		&l.Mileage, &l.Location, &condition, &l.ImageURL, &l.Description,
		&l.SourceURL, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.PredictedPrice = nullStringValue(predictedPrice)
	l.Condition = model.Condition(condition)
	return l, nil
}

// scanListings は複数行をmodel.Listingスライスに読み取る。
func scanListings(rows *sql.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("リスティング行の読み取りに失敗しました: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リスティング一覧の走査に失敗しました: %w", err)
	}
	return listings, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はNullStringから値を取り出す。NULLの場合は空文字列を返す。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
