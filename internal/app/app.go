package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/gamblr/internal/auth"
	"github.com/hitoshi/gamblr/internal/balldontlie"
	"github.com/hitoshi/gamblr/internal/config"
	"github.com/hitoshi/gamblr/internal/database"
	"github.com/hitoshi/gamblr/internal/favorite"
	"github.com/hitoshi/gamblr/internal/handler"
	"github.com/hitoshi/gamblr/internal/logger"
	"github.com/hitoshi/gamblr/internal/metrics"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/player"
	"github.com/hitoshi/gamblr/internal/repository"
	"github.com/hitoshi/gamblr/internal/security"
	"github.com/hitoshi/gamblr/internal/standings"
	"github.com/hitoshi/gamblr/internal/user"
	"github.com/hitoshi/gamblr/internal/view"
	"github.com/hitoshi/gamblr/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、LOG_FORMAT / LOG_LEVELに従って構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .env と環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってロガーを差し替える
	logger.Configure(w, logger.Options{
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})

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
			port = "8080"
		}
		return runHealthcheck(port)
	}

	if cmd == CommandDeleteUser && CommandArg(args) == "" {
		return errors.New("usage: gamblr deleteuser <username>")
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.Int("season", cfg.NBASeason),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandDeleteUser:
		return runDeleteUser(cfg, CommandArg(args))
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 4. 外部APIクライアントの初期化
	guard := security.NewUpstreamGuard()
	if err := guard.ValidateBaseURL(cfg.BalldontlieBaseURL); err != nil {
		return fmt.Errorf("invalid BALLDONTLIE_BASE_URL: %w", err)
	}
	statsClient := balldontlie.NewClient(
		guard.NewSafeClient(cfg.GatewayTimeout),
		cfg.BalldontlieAPIKey, cfg.BalldontlieBaseURL,
		slog.Default(), collector,
	)

	var standingsSvc handler.StandingsServiceInterface
	if cfg.StandingsEnabled() {
		if err := guard.ValidateBaseURL(cfg.StandingsBaseURL); err != nil {
			return fmt.Errorf("invalid STANDINGS_BASE_URL: %w", err)
		}
		standingsSvc = standings.NewClient(
			guard.NewSafeClient(cfg.GatewayTimeout),
			cfg.RapidAPIKey, cfg.RapidAPIHost, cfg.StandingsBaseURL,
			slog.Default(), collector,
		)
	} else {
		slog.Warn("RAPIDAPI_KEY is not set; division standings are disabled")
	}

	// 5. ドメインサービスの初期化
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	authService := auth.NewService(userRepo, sessionRepo, hasher, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	favoriteService := favorite.NewService(favoriteRepo, collector)
	playerService := player.NewService(statsClient, favoriteService, security.NewTextSanitizer(), player.Config{
		Season:        cfg.NBASeason,
		MaxConcurrent: cfg.GatewayMaxConcurrent,
	})

	// 6. ページハンドラーの構築
	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	h := handler.NewHandler(
		authService, playerService, favoriteService, standingsSvc, renderer,
		handler.NewFlashStore(cfg.SessionSecret, cfg.CookieSecure, cfg.CookieDomain),
		handler.HandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
	)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		SessionResolver: authService,
		RateLimiter:     rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:        slog.Default(),
		Handler:       h,
		HealthChecker: db,
		Metrics:       metrics.Handler(registry),
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
			slog.Bool("standings_enabled", standingsSvc != nil),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを定期実行し、メトリクスを :SERVER_PORT/metrics で公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)

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
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
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

// connectDatabase は起動時のDB接続を確立する。疎通確認は10秒で打ち切る。
func connectDatabase(cfg *config.Config) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return database.Connect(ctx, cfg.DatabaseURL)
}

// runDeleteUser はユーザーを削除する管理用サブコマンド。
// ユーザーのセッションとお気に入りもあわせて削除される。
func runDeleteUser(cfg *config.Config, username string) error {
	db, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := user.NewService(repository.NewPostgresUserRepo(db), repository.NewPostgresSessionRepo(db))
	if err := svc.DeleteByUsername(ctx, username); err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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
