// Package favorite はクライアントごとのお気に入り管理を提供する。
package favorite

import (
	"context"
	"fmt"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/repository"
)

// Service はお気に入りのトグルと一覧取得を扱う。
// お気に入りは (クライアントID, 掲載ID) の集合として保持され、
// トグルは集合への追加・削除として動作する。
type Service struct {
	favoriteRepo repository.FavoriteRepository
	listingRepo  repository.ListingRepository
}

// NewService はServiceを生成する。
func NewService(favoriteRepo repository.FavoriteRepository, listingRepo repository.ListingRepository) *Service {
	return &Service{
		favoriteRepo: favoriteRepo,
		listingRepo:  listingRepo,
	}
}

// ToggleResult はトグル後の状態を表す。
type ToggleResult struct {
	ListingID int64 `json:"listing_id"`
	Favorited bool  `json:"favorited"`
}

// Toggle は掲載のお気に入り状態を反転する。
// 未登録なら追加してtrue、登録済みなら削除してfalseを返す。
func (s *Service) Toggle(ctx context.Context, clientID string, listingID int64) (*ToggleResult, error) {
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("掲載の取得に失敗しました: %w", err)
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError(listingID)
	}

	exists, err := s.favoriteRepo.Exists(ctx, clientID, listingID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り状態の確認に失敗しました: %w", err)
	}

	if exists {
		if err := s.favoriteRepo.Remove(ctx, clientID, listingID); err != nil {
			return nil, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
		}
		return &ToggleResult{ListingID: listingID, Favorited: false}, nil
	}

	if err := s.favoriteRepo.Add(ctx, clientID, listingID); err != nil {
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return &ToggleResult{ListingID: listingID, Favorited: true}, nil
}

// IDs はクライアントのお気に入り掲載ID一覧を返す。
func (s *Service) IDs(ctx context.Context, clientID string) ([]int64, error) {
	ids, err := s.favoriteRepo.ListIDsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Listings はクライアントのお気に入り掲載の詳細一覧を返す。
// 削除済みの掲載IDは結果から除かれる。
func (s *Service) Listings(ctx context.Context, clientID string) ([]model.Listing, error) {
	ids, err := s.favoriteRepo.ListIDsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if len(ids) == 0 {
		return []model.Listing{}, nil
	}

	listings, err := s.listingRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("お気に入り掲載の取得に失敗しました: %w", err)
	}
	return listings, nil
}
