package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gamblr/internal/auth"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/view"
)

// credentialsPage はサインアップ・ログインフォームの再表示用データ。
// パスワードは再表示しない。
type credentialsPage struct {
	Username string
	Email    string
	Errors   map[string]string
}

// SignupPage はアカウント登録フォームを表示する。
// GET /signup
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, view.PageSignup, h.newPage(w, r, "Sign up", credentialsPage{}))
}

// Signup はアカウントを登録してそのままログインする。
// POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	form := signupFormFrom(r)
	data := credentialsPage{Username: form.Username, Email: form.Email}

	if errs := validateForm(form); errs != nil {
		data.Errors = errs
		h.renderer.Render(w, http.StatusUnprocessableEntity, view.PageSignup, h.newPage(w, r, "Sign up", data))
		return
	}

	user, err := h.auth.SignUp(r.Context(), auth.SignUpInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateIdentity) {
			var apiErr *model.APIError
			errors.As(err, &apiErr)
			page := h.newPage(w, r, "Sign up", data)
			page.Flashes = append(page.Flashes, view.Flash{Category: view.FlashDanger, Message: apiErr.Message})
			h.renderer.Render(w, http.StatusConflict, view.PageSignup, page)
			return
		}
		h.renderError(w, r, err)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, view.PageLogin, h.newPage(w, r, "Log in", credentialsPage{}))
}

// Login はユーザー名とパスワードで認証する。
// 成功した場合は挨拶のフラッシュを付けてトップページへ、失敗した場合はフォームを再表示する。
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := loginFormFrom(r)
	data := credentialsPage{Username: form.Username}

	if errs := validateForm(form); errs != nil {
		data.Errors = errs
		h.renderer.Render(w, http.StatusUnprocessableEntity, view.PageLogin, h.newPage(w, r, "Log in", data))
		return
	}

	user, err := h.auth.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if user == nil {
		page := h.newPage(w, r, "Log in", data)
		page.Flashes = append(page.Flashes, view.Flash{Category: view.FlashDanger, Message: "Invalid credentials."})
		h.renderer.Render(w, http.StatusUnauthorized, view.PageLogin, page)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/", view.FlashSuccess, "Hello, "+user.Username+"!")
}

// Logout はセッションを破棄してログインページへリダイレクトする。
// 未ログインの場合も同じくリダイレクトする。
// POST /logout（CSRFトークン必須）
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	state := middleware.SessionStateFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), state); err != nil {
		slog.Error("failed to logout",
			slog.String("user_id", state.UserID),
			slog.String("error", err.Error()),
		)
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// startSession はセッションを発行してCookieに設定する。
// 既存のセッションはauth.Service側で破棄される。
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	session, err := h.auth.Login(r.Context(), middleware.SessionStateFromContext(r.Context()), user)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
