// Package watchlist はウォッチリスト管理のドメインロジックを提供する。
package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/repository"
)

// Service はウォッチリストのサービス層。
// 作成・一覧・削除に加え、アクティブ上限を強制するアクティベーションゲートを提供する。
type Service struct {
	watchlistRepo repository.WatchlistRepository
	activeLimit   int
	metrics       GateMetrics
}

// GateMetrics はアクティベーション拒否の計測インターフェース。
type GateMetrics interface {
	RecordActivationRejected()
}

// NewService はServiceの新しいインスタンスを生成する。
// activeLimitはクライアントあたりの同時アクティブ上限。metricsはnil可。
func NewService(watchlistRepo repository.WatchlistRepository, activeLimit int, metrics GateMetrics) *Service {
	return &Service{
		watchlistRepo: watchlistRepo,
		activeLimit:   activeLimit,
		metrics:       metrics,
	}
}

// CreateParams はウォッチリスト作成時の検索条件。
type CreateParams struct {
	Title      string
	Make       string
	Model      string
	YearMin    int
	YearMax    int
	PriceMin   int
	PriceMax   int
	Location   string
	Conditions []model.Condition
}

// Create はウォッチリストを作成する。
// クライアントのアクティブ数が上限未満であればアクティブ状態で、
// 上限に達している場合は一時停止状態で作成する。
func (s *Service) Create(ctx context.Context, clientID string, params CreateParams) (*model.Watchlist, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	active, err := s.underLimit(ctx, clientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	w := &model.Watchlist{
		ID:         uuid.New().String(),
		ClientID:   clientID,
		Title:      params.Title,
		Make:       params.Make,
		Model:      params.Model,
		YearMin:    params.YearMin,
		YearMax:    params.YearMax,
		PriceMin:   params.PriceMin,
		PriceMax:   params.PriceMax,
		Location:   params.Location,
		Conditions: params.Conditions,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.watchlistRepo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("ウォッチリストの作成に失敗しました: %w", err)
	}

	return w, nil
}

// List はクライアントのウォッチリスト一覧を作成日時の昇順で返す。
func (s *Service) List(ctx context.Context, clientID string) ([]model.Watchlist, error) {
	lists, err := s.watchlistRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の取得に失敗しました: %w", err)
	}
	if lists == nil {
		lists = []model.Watchlist{}
	}
	return lists, nil
}

// Get は指定IDのウォッチリストを返す。
// 他クライアントのウォッチリストは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, clientID, id string) (*model.Watchlist, error) {
	w, err := s.findOwned(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Delete はウォッチリストを削除する。関連するマッチスナップショットも削除される。
func (s *Service) Delete(ctx context.Context, clientID, id string) error {
	w, err := s.findOwned(ctx, clientID, id)
	if err != nil {
		return err
	}

	if err := s.watchlistRepo.Delete(ctx, w.ID); err != nil {
		return fmt.Errorf("ウォッチリストの削除に失敗しました: %w", err)
	}

	return nil
}

// TryActivate はウォッチリストのアクティブ状態を変更する。
// 停止（active=false）は常に許可される。アクティブ化はクライアントの
// アクティブ数が上限に達している場合に拒否され、状態は変更されない。
func (s *Service) TryActivate(ctx context.Context, clientID, id string, active bool) (*model.Watchlist, error) {
	w, err := s.findOwned(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	// 状態が変わらない場合は何もしない
	if w.IsActive == active {
		return w, nil
	}

	if active {
		under, err := s.underLimit(ctx, clientID)
		if err != nil {
			return nil, err
		}
		if !under {
			if s.metrics != nil {
				s.metrics.RecordActivationRejected()
			}
			return nil, model.NewWatchlistLimitError(s.activeLimit)
		}
	}

	if err := s.watchlistRepo.UpdateActive(ctx, w.ID, active); err != nil {
		return nil, fmt.Errorf("アクティブ状態の更新に失敗しました: %w", err)
	}

	w.IsActive = active
	return w, nil
}

// Matches はウォッチリストのマッチ一覧をスコア降順で返す。
// マッチャーワーカーが保存したスナップショットのみを読み、
// リスティングを再評価することはない。
func (s *Service) Matches(ctx context.Context, clientID, id string) ([]model.WatchlistMatchWithListing, error) {
	w, err := s.findOwned(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	matches, err := s.watchlistRepo.ListMatches(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	if matches == nil {
		matches = []model.WatchlistMatchWithListing{}
	}
	return matches, nil
}

// findOwned はクライアント所有のウォッチリストを取得する。
// 未存在・他クライアント所有はいずれもWATCHLIST_NOT_FOUNDとして扱う。
func (s *Service) findOwned(ctx context.Context, clientID, id string) (*model.Watchlist, error) {
	w, err := s.watchlistRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	if w == nil {
		return nil, model.NewWatchlistNotFoundError(id)
	}
	if w.ClientID != clientID {
		return nil, model.NewWatchlistNotFoundError(id)
	}
	return w, nil
}

// underLimit はクライアントのアクティブ数が上限未満か返す。
func (s *Service) underLimit(ctx context.Context, clientID string) (bool, error) {
	count, err := s.watchlistRepo.CountActiveByClient(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("アクティブ数の取得に失敗しました: %w", err)
	}
	return count < s.activeLimit, nil
}

// validateParams は作成条件を検証する。
func validateParams(params CreateParams) error {
	if params.Title == "" {
		return model.NewInvalidWatchlistError("タイトルは必須です")
	}
	if params.YearMin > 0 && params.YearMax > 0 && params.YearMin > params.YearMax {
		return model.NewInvalidYearRangeError(params.YearMin, params.YearMax)
	}
	for _, c := range params.Conditions {
		if !model.ValidConditions[c] {
			return model.NewInvalidConditionError(string(c))
		}
	}
	return nil
}
