package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/repository"
)

// Backfiller は画像URL未設定のリスティングに対して掲載元ページから
// 画像を解決して補完するバッチジョブ。解決できないリスティングは
// スキップされ、次回サイクルで再試行される。
type Backfiller struct {
	listingRepo repository.ListingRepository
	resolver    ImageResolverService
	logger      *slog.Logger
}

// NewBackfiller はBackfillerの新しいインスタンスを生成する。
func NewBackfiller(listingRepo repository.ListingRepository, resolver ImageResolverService, logger *slog.Logger) *Backfiller {
	return &Backfiller{
		listingRepo: listingRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// Run は画像URLが空かつ掲載元URLを持つリスティングを走査し、
// og:imageの解決を試みる。個々の解決失敗はジョブを止めない。
func (b *Backfiller) Run(ctx context.Context) error {
	listings, err := b.listingRepo.List(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("リスティング一覧の取得に失敗しました: %w", err)
	}

	resolved := 0
	skipped := 0
	for _, l := range listings {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !needsImage(l) {
			continue
		}

		imageURL := b.resolver.ResolveImage(ctx, l.SourceURL)
		if imageURL == "" {
			skipped++
			continue
		}

		if err := b.listingRepo.UpdateImageURL(ctx, l.ID, imageURL); err != nil {
			b.logger.Warn("画像URLの保存に失敗しました",
				slog.Int64("listing_id", l.ID),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}
		resolved++
	}

	b.logger.Info("画像バックフィルが完了しました",
		slog.Int("resolved", resolved),
		slog.Int("skipped", skipped),
	)
	return nil
}

func needsImage(l model.Listing) bool {
	return l.ImageURL == "" && l.SourceURL != ""
}
