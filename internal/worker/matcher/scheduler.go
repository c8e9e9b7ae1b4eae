package matcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/repository"
)

// WatchlistMatcherService はマッチ評価の実行インターフェース。
type WatchlistMatcherService interface {
	// Run は指定ウォッチリストを評価し、マッチスナップショットを置き換える。
	Run(ctx context.Context, w *model.Watchlist) error
}

// Scheduler はマッチ計算のスケジューリングと並列制御を行う。
// ティッカーでアクティブなウォッチリストを取得し、
// semaphoreパターンで最大並列数を制御しながらマッチ評価を実行する。
type Scheduler struct {
	watchlistRepo  repository.WatchlistRepository
	matcher        WatchlistMatcherService
	logger         *slog.Logger
	metrics        MatcherMetrics
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。metricsはnil可。
func NewScheduler(
	watchlistRepo repository.WatchlistRepository,
	matcher WatchlistMatcherService,
	logger *slog.Logger,
	metrics MatcherMetrics,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		watchlistRepo:  watchlistRepo,
		matcher:        matcher,
		logger:         logger,
		metrics:        metrics,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("マッチスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("マッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("マッチスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("マッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はアクティブなウォッチリストを1回取得し、並列でマッチ評価を実行する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	watchlists, err := s.watchlistRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	if len(watchlists) == 0 {
		s.logger.Info("アクティブなウォッチリストはありません")
		return nil
	}

	s.logger.Info("マッチサイクルを開始します",
		slog.Int("watchlist_count", len(watchlists)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for i := range watchlists {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(w *model.Watchlist) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.matcher.Run(ctx, w); err != nil {
				s.logger.Error("ウォッチリストのマッチ評価に失敗しました",
					slog.String("watchlist_id", w.ID),
					slog.String("error", err.Error()),
				)
			}
		}(&watchlists[i])
	}

	wg.Wait()

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordMatchCycle(duration, len(watchlists))
	}
	s.logger.Info("マッチサイクルが完了しました",
		slog.Int("watchlist_count", len(watchlists)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
