// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gamblr/internal/auth"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/player"
	"github.com/hitoshi/gamblr/internal/standings"
	"github.com/hitoshi/gamblr/internal/stats"
	"github.com/hitoshi/gamblr/internal/view"
)

// AuthServiceInterface はページハンドラーが必要とする認証サービスのインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, current model.SessionState, user *model.User) (*model.Session, error)
	Logout(ctx context.Context, state model.SessionState) error
	CurrentUser(ctx context.Context, state model.SessionState) *model.User
}

// PlayerServiceInterface は選手ページのサービスインターフェース。
type PlayerServiceInterface interface {
	FavoritesOverview(ctx context.Context, state model.SessionState) (*player.Overview, error)
	Search(ctx context.Context, state model.SessionState, name string) (*player.SearchResult, error)
	SeasonStats(ctx context.Context, playerID int) (*player.SeasonStats, error)
	CheckLine(ctx context.Context, playerID int, category stats.Category, threshold float64) (*player.LineCheck, error)
	Season() int
}

// FavoriteServiceInterface はお気に入り操作のサービスインターフェース。
type FavoriteServiceInterface interface {
	Add(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error)
	Remove(ctx context.Context, state model.SessionState, playerID int) (bool, error)
}

// StandingsServiceInterface はディビジョン順位表の取得インターフェース。
type StandingsServiceInterface interface {
	ListDivision(ctx context.Context, division string, season int) ([]model.Standing, error)
}

// HandlerConfig はページハンドラーの設定。
type HandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// Handler はサーバーレンダリングのページハンドラー。
type Handler struct {
	auth      AuthServiceInterface
	players   PlayerServiceInterface
	favorites FavoriteServiceInterface
	standings StandingsServiceInterface // 未設定の場合はnil
	renderer  *view.Renderer
	flash     *FlashStore
	config    HandlerConfig
}

// NewHandler はHandlerを生成する。standingsSvcはnilでもよい。
func NewHandler(
	authSvc AuthServiceInterface,
	players PlayerServiceInterface,
	favorites FavoriteServiceInterface,
	standingsSvc StandingsServiceInterface,
	renderer *view.Renderer,
	flash *FlashStore,
	config HandlerConfig,
) *Handler {
	return &Handler{
		auth:      authSvc,
		players:   players,
		favorites: favorites,
		standings: standingsSvc,
		renderer:  renderer,
		flash:     flash,
		config:    config,
	}
}

// newPage は全ページ共通のテンプレートデータを組み立てる。
// フラッシュメッセージはここで読み出して削除する。
func (h *Handler) newPage(w http.ResponseWriter, r *http.Request, title string, data any) *view.Page {
	page := &view.Page{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Flashes:   h.flash.Pop(w, r),
		Season:    h.players.Season(),
		Divisions: standings.Divisions,
		Data:      data,
	}
	if user := h.auth.CurrentUser(r.Context(), middleware.SessionStateFromContext(r.Context())); user != nil {
		pub := user.Public()
		page.User = &pub
	}
	return page
}

// errorPage はエラーページに表示する内容。
type errorPage struct {
	Heading string
	Message string
	Action  string
}

// renderError はエラーの種類に応じたステータスコードでエラーページを描画する。
// 原因エラーはログにのみ記録する。
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	data := errorPage{
		Heading: "Something went wrong",
		Message: "An unexpected error occurred.",
		Action:  "Please try again in a moment.",
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status = statusForCode(apiErr.Code)
		data = errorPage{Heading: headingForStatus(status), Message: apiErr.Message, Action: apiErr.Action}
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	h.renderer.Render(w, status, view.PageError, h.newPage(w, r, data.Heading, data))
}

// renderNotFound は存在しないリソースへのアクセスに対して404ページを描画する。
func (h *Handler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusNotFound, view.PageError, h.newPage(w, r, "Not found", errorPage{
		Heading: "Not found",
		Message: "The page you were looking for does not exist.",
	}))
}

// statusForCode はエラーコードをHTTPステータスに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidCategory, model.ErrCodeInvalidThreshold:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidPlayerID, model.ErrCodeInvalidDivision, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeDuplicateIdentity, model.ErrCodeAlreadyFavorited:
		return http.StatusConflict
	case model.ErrCodeGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func headingForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Not found"
	case http.StatusBadGateway:
		return "Stats provider unavailable"
	case http.StatusUnauthorized:
		return "Login required"
	default:
		return "Something went wrong"
	}
}

// redirectWithFlash はフラッシュメッセージを設定して303でリダイレクトする。
func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, category, message string) {
	h.flash.Set(w, view.Flash{Category: category, Message: message})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// playerIDParam はURLパラメータから選手IDを取り出す。正の整数でない場合はfalseを返す。
func playerIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
