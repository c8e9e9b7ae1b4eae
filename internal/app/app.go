package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/carwatch/internal/chat"
	"github.com/hitoshi/carwatch/internal/config"
	"github.com/hitoshi/carwatch/internal/database"
	"github.com/hitoshi/carwatch/internal/favorite"
	"github.com/hitoshi/carwatch/internal/handler"
	"github.com/hitoshi/carwatch/internal/ingest"
	"github.com/hitoshi/carwatch/internal/listing"
	"github.com/hitoshi/carwatch/internal/logger"
	"github.com/hitoshi/carwatch/internal/media"
	"github.com/hitoshi/carwatch/internal/metrics"
	"github.com/hitoshi/carwatch/internal/middleware"
	"github.com/hitoshi/carwatch/internal/prediction"
	"github.com/hitoshi/carwatch/internal/repository"
	"github.com/hitoshi/carwatch/internal/security"
	"github.com/hitoshi/carwatch/internal/watchlist"
	"github.com/hitoshi/carwatch/internal/worker/cleanup"
	matcherpkg "github.com/hitoshi/carwatch/internal/worker/matcher"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	listingRepo := repository.NewPostgresListingRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	watchlistRepo := repository.NewPostgresWatchlistRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	listingService := listing.NewService(listingRepo, collector)
	favoriteService := favorite.NewService(favoriteRepo, listingRepo)
	watchlistService := watchlist.NewService(watchlistRepo, cfg.WatchlistActiveLimit, collector)
	predictionService := prediction.NewService(prediction.NewHeuristicPredictor())
	chatService := chat.NewService(chat.NewCannedResponder(cfg.ChatDelayMin, cfg.ChatDelayMax))

	// 5. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ChatRate = rate.Limit(float64(cfg.RateLimitChat) / 60.0)
	rateLimiterCfg.ChatBurst = cfg.RateLimitChat

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		HTTPMetrics:       collector,

		ListingService:    listingService,
		FavoriteService:   favoriteService,
		WatchlistService:  watchlistService,
		PredictionService: predictionService,
		ChatService:       chatService,

		DB: db,
	}

	router := handler.NewRouter(deps)

	// 6. メトリクスサーバーの起動（APIとは別ポートの専用mux）
	metricsServer := &http.Server{
		Addr:        ":" + cfg.MetricsPort,
		Handler:     metrics.SetupMetricsRoute(registry),
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、ウォッチリストのマッチスケジューラを起動する。
// 画像バックフィルとリスティングクリーンアップはバックグラウンドで実行される。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	listingRepo := repository.NewPostgresListingRepo(db)
	watchlistRepo := repository.NewPostgresWatchlistRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. マッチャーとスケジューラの初期化
	matcher := matcherpkg.NewMatcher(listingRepo, watchlistRepo, cfg.NewMatchWindow, slog.Default())
	scheduler := matcherpkg.NewScheduler(
		watchlistRepo, matcher, slog.Default(), collector, cfg.MatchMaxConcurrent,
	)

	// 5. 画像バックフィルジョブの初期化
	ssrfGuard := security.NewSSRFGuard()
	imageResolver := media.NewImageResolver(ssrfGuard, cfg.ImageFetchTimeout, cfg.ImageFetchMaxSize)
	backfiller := media.NewBackfiller(listingRepo, imageResolver, slog.Default())

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// 7. メトリクスサーバーの起動
	metricsServer := &http.Server{
		Addr:        ":" + cfg.MetricsPort,
		Handler:     metrics.SetupMetricsRoute(registry),
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("match_interval", cfg.MatchInterval),
		slog.Int("max_concurrent", cfg.MatchMaxConcurrent),
	)

	// 画像バックフィルジョブを1時間ごとにバックグラウンド実行
	go func() {
		if err := backfiller.Run(ctx); err != nil {
			slog.Error("image backfill failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := backfiller.Run(ctx); err != nil {
					slog.Error("image backfill failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// マッチスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.MatchInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はバンドル済みのサンプルリスティングをDBへ取り込む。
// ローカル開発とデモ環境の初期データ投入用サブコマンド。冪等ではない。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	listingRepo := repository.NewPostgresListingRepo(db)
	sanitizer := security.NewDescriptionSanitizer()
	collector := metrics.NewCollector(prometheus.NewRegistry())

	importer, err := ingest.NewImporter(listingRepo, sanitizer, slog.Default(), collector)
	if err != nil {
		return fmt.Errorf("failed to build importer: %w", err)
	}

	result, err := importer.Seed(context.Background())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.Int("imported", result.Imported),
		slog.Int("rejected", result.Rejected),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/api/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
