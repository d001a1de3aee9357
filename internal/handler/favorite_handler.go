package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/view"
)

// AddFavorite は選手をログインユーザーのお気に入りに追加してトップページへリダイレクトする。
// 登録済みの場合は警告のフラッシュを付ける。
// POST /users/add_favorite_player/{playerID}
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	state := middleware.SessionStateFromContext(r.Context())
	_, err := h.favorites.Add(r.Context(), state, playerID)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, model.ErrAlreadyFavorited):
		h.redirectWithFlash(w, r, "/", view.FlashWarning, "This Player is already favorited!")
	case errors.Is(err, model.ErrUnauthenticated):
		h.DenyFavorite(w, r)
	default:
		logRequestError(r, err)
		h.redirectWithFlash(w, r, "/", view.FlashDanger, "Error adding player to favorites.")
	}
}

// RemoveFavorite は選手をお気に入りから外してトップページへリダイレクトする。
// 登録されていない選手を指定しても成功として扱う。
// POST /users/{playerID}/delete
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	state := middleware.SessionStateFromContext(r.Context())
	_, err := h.favorites.Remove(r.Context(), state, playerID)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, model.ErrUnauthenticated):
		h.DenyRemoveFavorite(w, r)
	default:
		logRequestError(r, err)
		h.redirectWithFlash(w, r, "/", view.FlashDanger, "Error removing player from favorites.")
	}
}

// DenyFavorite は未ログインでお気に入り追加を試みた場合にログインページへ誘導する。
func (h *Handler) DenyFavorite(w http.ResponseWriter, r *http.Request) {
	h.redirectWithFlash(w, r, "/login", view.FlashDanger, model.NewUnauthenticatedError().Message)
}

// DenyRemoveFavorite は未ログインでお気に入り削除を試みた場合にトップページへ戻す。
func (h *Handler) DenyRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.redirectWithFlash(w, r, "/", view.FlashDanger, "Access unauthorized.")
}

func isGatewayFailure(err error) bool {
	return errors.Is(err, model.ErrGatewayFailure)
}

// validationMessageForCode はドメインの検証エラーをフォーム用のメッセージに変換する。
func validationMessageForCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Action != "" {
		return apiErr.Action
	}
	return "Is invalid."
}

func logRequestError(r *http.Request, err error) {
	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
