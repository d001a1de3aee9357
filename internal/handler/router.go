package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver middleware.SessionResolver
	RateLimiter     *middleware.RateLimiter // nilの場合はレート制限なし
	CSRFConfig      middleware.CSRFConfig
	Logger          *slog.Logger

	// ページ
	Handler *Handler

	// 運用
	HealthChecker HealthChecker
	Metrics       http.Handler // nilの場合は /metrics を公開しない
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Session → Logging → CSRF
//
// X-Forwarded-For等のヘッダーでRemoteAddrを書き換えない。認証POSTのレート制限は接続元アドレスで行う。
//
// /health、/metrics、/static/* はセッションとCSRFのチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// --- チェーン外のルート ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	r.Method(http.MethodGet, "/static/*", view.StaticHandler("/static/"))

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := deps.Handler

	// --- ページ ---
	// ミドルウェアスタック: Session → Logging → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/", h.Home)
		r.Post("/", h.HomeSearch)

		// 認証フォーム（POSTのみレート制限）
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.AuthMiddleware())
			}
			r.Get("/signup", h.SignupPage)
			r.Post("/signup", h.Signup)
			r.Get("/login", h.LoginPage)
			r.Post("/login", h.Login)
		})
		r.Post("/logout", h.Logout)

		// 選手・順位表
		r.Get("/standings/{division}", h.Standings)
		r.Get("/active-player/{name}", h.SearchPlayers)
		r.Get("/{playerID}/player-stats", h.PlayerStats)
		r.Get("/{playerID}/bet-line-check", h.BetLineCheckPage)
		r.Post("/{playerID}/bet-line-check", h.BetLineCheck)

		// お気に入り（ログイン必須）
		r.With(middleware.NewRequireSessionMiddleware(http.HandlerFunc(h.DenyFavorite))).
			Post("/users/add_favorite_player/{playerID}", h.AddFavorite)
		r.With(middleware.NewRequireSessionMiddleware(http.HandlerFunc(h.DenyRemoveFavorite))).
			Post("/users/{playerID}/delete", h.RemoveFavorite)

		r.NotFound(h.renderNotFound)
	})

	return r
}
