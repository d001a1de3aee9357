package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/player"
	"github.com/hitoshi/gamblr/internal/standings"
	"github.com/hitoshi/gamblr/internal/stats"
	"github.com/hitoshi/gamblr/internal/view"
)

// Home はトップページ（検索フォームとお気に入り選手一覧）を表示する。
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	state := middleware.SessionStateFromContext(r.Context())

	overview, err := h.players.FavoritesOverview(r.Context(), state)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, view.PageHome, h.newPage(w, r, "", overview))
}

// HomeSearch は検索フォームの送信を受けて検索結果ページへリダイレクトする。
// POST /
func (h *Handler) HomeSearch(w http.ResponseWriter, r *http.Request) {
	form := searchFormFrom(r)
	if errs := validateForm(form); errs != nil {
		h.redirectWithFlash(w, r, "/", view.FlashWarning, "Please enter a player name to search.")
		return
	}

	http.Redirect(w, r, "/active-player/"+url.PathEscape(form.PlayerName), http.StatusSeeOther)
}

// SearchPlayers は名前の部分一致で現役選手を検索する。
// GET /active-player/{name}
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	state := middleware.SessionStateFromContext(r.Context())

	result, err := h.players.Search(r.Context(), state, chi.URLParam(r, "name"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, view.PageSearch, h.newPage(w, r, "Search", result))
}

// PlayerStats は選手のシーズン試合別スタッツと平均を表示する。
// スタッツの取得に失敗した場合はフラッシュを付けてトップページへリダイレクトする。
// GET /{playerID}/player-stats
func (h *Handler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	season, err := h.players.SeasonStats(r.Context(), playerID)
	if err != nil {
		if isGatewayFailure(err) {
			logRequestError(r, err)
			h.redirectWithFlash(w, r, "/", view.FlashDanger, "Error loading player stats.")
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, view.PagePlayerStats, h.newPage(w, r, "Player stats", season))
}

// betLinePage はベットライン判定ページのデータ。
type betLinePage struct {
	PlayerID   int
	Categories []stats.Category
	Form       LineCheckForm
	Errors     map[string]string
	Result     *player.LineCheck // 判定前はnil
}

// BetLineCheckPage はベットライン判定フォームを表示する。
// GET /{playerID}/bet-line-check
func (h *Handler) BetLineCheckPage(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	data := betLinePage{
		PlayerID:   playerID,
		Categories: stats.Categories(),
		Form:       LineCheckForm{StatCat: stats.Points.String()},
	}
	h.renderer.Render(w, http.StatusOK, view.PageBetLineCheck, h.newPage(w, r, "Bet line check", data))
}

// BetLineCheck はシーズンの試合のうちラインを上回った試合数を表示する。
// POST /{playerID}/bet-line-check
func (h *Handler) BetLineCheck(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	form := lineCheckFormFrom(r)
	data := betLinePage{
		PlayerID:   playerID,
		Categories: stats.Categories(),
		Form:       form,
	}

	if errs := validateForm(form); errs != nil {
		data.Errors = errs
		h.renderer.Render(w, http.StatusUnprocessableEntity, view.PageBetLineCheck, h.newPage(w, r, "Bet line check", data))
		return
	}

	category, err := stats.ParseCategory(form.StatCat)
	if err != nil {
		data.Errors = map[string]string{"stat_cat": validationMessageForCode(err)}
		h.renderer.Render(w, http.StatusUnprocessableEntity, view.PageBetLineCheck, h.newPage(w, r, "Bet line check", data))
		return
	}
	threshold, err := player.ParseThreshold(form.BetLine)
	if err != nil {
		data.Errors = map[string]string{"bet_line": validationMessageForCode(err)}
		h.renderer.Render(w, http.StatusUnprocessableEntity, view.PageBetLineCheck, h.newPage(w, r, "Bet line check", data))
		return
	}

	result, err := h.players.CheckLine(r.Context(), playerID, category, threshold)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data.Result = result

	h.renderer.Render(w, http.StatusOK, view.PageBetLineCheck, h.newPage(w, r, "Bet line check", data))
}

// standingsPage はディビジョン順位表ページのデータ。
type standingsPage struct {
	Title     string
	Standings []model.Standing
}

// Standings はディビジョンの順位表を表示する。
// GET /standings/{division}
func (h *Handler) Standings(w http.ResponseWriter, r *http.Request) {
	division, err := standings.ParseDivision(chi.URLParam(r, "division"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if h.standings == nil {
		h.renderer.Render(w, http.StatusServiceUnavailable, view.PageError, h.newPage(w, r, "Standings", errorPage{
			Heading: "Standings unavailable",
			Message: "Division standings are not configured on this server.",
		}))
		return
	}

	rows, err := h.standings.ListDivision(r.Context(), division, h.players.Season())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := standingsPage{
		Title:     strings.ToUpper(division[:1]) + division[1:],
		Standings: rows,
	}
	h.renderer.Render(w, http.StatusOK, view.PageStandings, h.newPage(w, r, data.Title+" standings", data))
}
