package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/carwatch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetrics // nilの場合は記録しない

	// ドメインサービス
	ListingService    ListingServiceInterface
	FavoriteService   FavoriteServiceInterface
	WatchlistService  WatchlistServiceInterface
	PredictionService PredictionServiceInterface
	ChatService       ChatServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Metrics] → Client → RateLimit(General)
//
// ヘルスチェックと閲覧系（/api/cars、/api/predictions）はクライアントID不要。
// お気に入り・ウォッチリスト・チャットはX-Client-IDヘッダーを必須とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	listingHandler := NewListingHandler(deps.ListingService)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	watchlistHandler := NewWatchlistHandler(deps.WatchlistService)
	predictionHandler := NewPredictionHandler(deps.PredictionService)
	chatHandler := NewChatHandler(deps.ChatService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- クライアントID不要のルート ---

	r.Get("/api/health", healthHandler.Check)

	// リスティング閲覧
	r.Route("/api/cars", func(r chi.Router) {
		r.Get("/", listingHandler.ListCars)
		r.Get("/brands", listingHandler.ListBrands)
		r.Get("/sections", listingHandler.HomeSections)
		r.Get("/{id}", listingHandler.GetCar)
	})

	// 価格予測
	r.Route("/api/predictions", func(r chi.Router) {
		r.Post("/predict", predictionHandler.Predict)
		r.Post("/uncertainty", predictionHandler.Uncertainty)
		r.Post("/analyze", predictionHandler.Analyze)
		r.Get("/model", predictionHandler.ModelInfo)
	})

	// --- クライアントIDが必要なルート ---
	// ミドルウェアスタック: Client → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewClientMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// お気に入り管理
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.ListFavorites)
			r.Post("/", favoriteHandler.ToggleFavoriteByBody)
			r.Put("/{id}/toggle", favoriteHandler.ToggleFavorite)
		})

		// ウォッチリスト管理
		r.Route("/api/watchlists", func(r chi.Router) {
			r.Get("/", watchlistHandler.ListWatchlists)
			r.Post("/", watchlistHandler.CreateWatchlist)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", watchlistHandler.GetWatchlist)
				r.Delete("/", watchlistHandler.DeleteWatchlist)
				r.Post("/activate", watchlistHandler.ActivateWatchlist)
				r.Post("/pause", watchlistHandler.PauseWatchlist)
				r.Get("/matches", watchlistHandler.ListMatches)
			})
		})

		// チャットアシスタント（送信専用レート制限を追加）
		r.With(deps.RateLimiter.ChatMiddleware()).Post("/api/chat/messages", chatHandler.SendMessage)
	})

	return r
}
