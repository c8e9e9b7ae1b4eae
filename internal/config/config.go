package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Watchlist
	// アクティブ上限はプロダクトポリシー（フリートライアル制限）であり、
	// ドメインの不変条件ではないため設定値として持つ。
	WatchlistActiveLimit int
	MatchInterval        time.Duration
	MatchMaxConcurrent   int
	NewMatchWindow       time.Duration

	// Chat
	ChatDelayMin time.Duration
	ChatDelayMax time.Duration

	// Image fetch
	ImageFetchTimeout time.Duration
	ImageFetchMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitChat    int

	// Server
	ServerPort  string
	MetricsPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（設定済みの変数は上書きされない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しない場合は無視する
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.WatchlistActiveLimit = getEnvInt("WATCHLIST_ACTIVE_LIMIT", 2)
	cfg.MatchInterval = getEnvDuration("MATCH_INTERVAL", 15*time.Minute)
	cfg.MatchMaxConcurrent = getEnvInt("MATCH_MAX_CONCURRENT", 10)
	cfg.NewMatchWindow = getEnvDuration("NEW_MATCH_WINDOW", 24*time.Hour)
	cfg.ChatDelayMin = getEnvDuration("CHAT_DELAY_MIN", 1*time.Second)
	cfg.ChatDelayMax = getEnvDuration("CHAT_DELAY_MAX", 3*time.Second)
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 5*time.Second)
	cfg.ImageFetchMaxSize = getEnvInt64("IMAGE_FETCH_MAX_SIZE", 2097152)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.WatchlistActiveLimit < 1 {
		return nil, fmt.Errorf("WATCHLIST_ACTIVE_LIMIT must be at least 1, got %d", cfg.WatchlistActiveLimit)
	}
	if cfg.ChatDelayMax < cfg.ChatDelayMin {
		return nil, fmt.Errorf("CHAT_DELAY_MAX must not be less than CHAT_DELAY_MIN")
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
