// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, listing, watchlist, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeListingNotFound   = "LISTING_NOT_FOUND"
	ErrCodeWatchlistNotFound = "WATCHLIST_NOT_FOUND"
	ErrCodeWatchlistLimit    = "WATCHLIST_LIMIT"
	ErrCodeInvalidSort       = "INVALID_SORT"
	ErrCodeInvalidCondition  = "INVALID_CONDITION"
	ErrCodeInvalidPrice      = "INVALID_PRICE"
	ErrCodeInvalidListing    = "INVALID_LISTING"
	ErrCodeInvalidWatchlist  = "INVALID_WATCHLIST"
	ErrCodeInvalidFeatures   = "INVALID_FEATURES"
	ErrCodeInvalidMessage    = "INVALID_MESSAGE"
	ErrCodeInvalidYearRange  = "INVALID_YEAR_RANGE"
	ErrCodeClientRequired    = "CLIENT_REQUIRED"
)

// NewListingNotFoundError はリスティング未検出エラーを生成する。
func NewListingNotFoundError(listingID int64) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("指定されたリスティングが見つかりません: %d", listingID),
		Category: "listing",
		Action:   "リスティングIDを確認してください。",
	}
}

// NewWatchlistNotFoundError はウォッチリスト未検出エラーを生成する。
func NewWatchlistNotFoundError(watchlistID string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchlistNotFound,
		Message:  fmt.Sprintf("指定されたウォッチリストが見つかりません: %s", watchlistID),
		Category: "watchlist",
		Action:   "ウォッチリストIDを確認してください。",
	}
}

// NewWatchlistLimitError はアクティブ上限到達エラーを生成する。
// 上限値はプロダクトポリシーとして設定から与えられる。
func NewWatchlistLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeWatchlistLimit,
		Message:  fmt.Sprintf("アクティブなウォッチリストが上限（%d件）に達しています。", limit),
		Category: "watchlist",
		Action:   "他のウォッチリストを一時停止するか、アップグレードしてください。",
	}
}

// NewInvalidSortError は無効なソート種別エラーを生成する。
func NewInvalidSortError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効なソート種別です: %s", sort),
		Category: "validation",
		Action:   "ソート種別には newest、oldest、price-low、price-high のいずれかを指定してください。",
	}
}

// NewInvalidConditionError は無効な状態区分エラーを生成する。
func NewInvalidConditionError(condition string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCondition,
		Message:  fmt.Sprintf("無効な状態区分です: %s", condition),
		Category: "validation",
		Action:   "状態区分には New、Used、Certified Pre-Owned のいずれかを指定してください。",
	}
}

// NewInvalidPriceError は価格文字列のパース失敗エラーを生成する。
func NewInvalidPriceError(price string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  fmt.Sprintf("価格をパースできません: %q", price),
		Category: "validation",
		Action:   "価格は \"$24,500\" のような通貨形式で指定してください。",
	}
}

// NewInvalidListingError はリスティングのスキーマ検証失敗エラーを生成する。
func NewInvalidListingError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidListing,
		Message:  fmt.Sprintf("リスティングレコードが不正です: %s", reason),
		Category: "validation",
		Action:   "必須フィールドとフィールド形式を確認してください。",
	}
}

// NewInvalidWatchlistError はウォッチリストの検証失敗エラーを生成する。
func NewInvalidWatchlistError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWatchlist,
		Message:  fmt.Sprintf("ウォッチリストの内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidYearRangeError は無効な年式範囲エラーを生成する。
func NewInvalidYearRangeError(yearMin, yearMax int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidYearRange,
		Message:  fmt.Sprintf("無効な年式範囲です: %d-%d", yearMin, yearMax),
		Category: "validation",
		Action:   "開始年式は終了年式以下を指定してください。",
	}
}

// NewInvalidFeaturesError は予測特徴量の検証失敗エラーを生成する。
func NewInvalidFeaturesError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFeatures,
		Message:  fmt.Sprintf("予測の入力が不正です: %s", reason),
		Category: "validation",
		Action:   "ブランド・年式・走行距離を確認してください。",
	}
}

// NewInvalidMessageError はチャットメッセージの検証失敗エラーを生成する。
func NewInvalidMessageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessage,
		Message:  fmt.Sprintf("メッセージが不正です: %s", reason),
		Category: "validation",
		Action:   "メッセージ本文を確認してください。",
	}
}

// NewClientRequiredError はクライアントID未指定エラーを生成する。
func NewClientRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeClientRequired,
		Message:  "クライアントIDが指定されていません。",
		Category: "validation",
		Action:   "X-Client-IDヘッダーを付与してリクエストしてください。",
	}
}
