// Package model はドメインモデルを定義する。
package model

import "time"

// Favorite はクライアントがスターを付けたリスティングを表す。
// 集合として扱い、同じリスティングIDは高々1件しか存在しない。
type Favorite struct {
	ClientID  string
	ListingID int64
	CreatedAt time.Time
}
