package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int
	BcryptCost    int

	// Stats provider (balldontlie)
	BalldontlieAPIKey  string
	BalldontlieBaseURL string
	NBASeason          int

	// Standings (api-nba-v1 via RapidAPI)
	RapidAPIKey      string
	RapidAPIHost     string
	StandingsBaseURL string

	// Gateway
	GatewayTimeout       time.Duration
	GatewayMaxConcurrent int

	// Rate Limit
	RateLimitAuth int // ログイン・サインアップのPOST（req/min）

	// Worker
	SessionCleanupInterval time.Duration

	// Logging
	LogFormat string
	LogLevel  string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// LoadDotEnv は.envファイルを読み込んで環境変数に反映する。
// 既に設定されている環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BalldontlieAPIKey = os.Getenv("BALLDONTLIE_API_KEY")
	if cfg.BalldontlieAPIKey == "" {
		missing = append(missing, "BALLDONTLIE_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 0)
	cfg.BalldontlieBaseURL = getEnvString("BALLDONTLIE_BASE_URL", "https://api.balldontlie.io/v1")
	cfg.NBASeason = getEnvInt("NBA_SEASON", 2024)
	cfg.RapidAPIKey = getEnvString("RAPIDAPI_KEY", "")
	cfg.RapidAPIHost = getEnvString("RAPIDAPI_HOST", "api-nba-v1.p.rapidapi.com")
	cfg.StandingsBaseURL = getEnvString("STANDINGS_BASE_URL", "https://api-nba-v1.p.rapidapi.com")
	cfg.GatewayTimeout = getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second)
	cfg.GatewayMaxConcurrent = getEnvInt("GATEWAY_MAX_CONCURRENT", 4)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	if cfg.NBASeason < 1946 {
		return nil, fmt.Errorf("NBA_SEASON must be a season year, got %d", cfg.NBASeason)
	}

	return cfg, nil
}

// StandingsEnabled は順位表APIのキーが設定されているかを返す。
func (c *Config) StandingsEnabled() bool {
	return c.RapidAPIKey != ""
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
