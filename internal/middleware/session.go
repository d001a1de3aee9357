// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/gamblr/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionStateContextKey はリクエストコンテキストにセッション状態を格納するためのキー。
var sessionStateContextKey = contextKey("session_state")

// SessionResolver はセッションIDからセッション状態を復元するインターフェース。
// auth.Serviceが実装する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) model.SessionState
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// セッション状態をリクエストコンテキストに注入するミドルウェアを返す。
// ページは未ログインでも閲覧できるため、セッションが無効でもリクエストは拒否せず
// 未ログイン状態として次へ渡す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := model.AnonymousState()

			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				state = resolver.ResolveSession(r.Context(), cookie.Value)
			}

			ctx := ContextWithSessionState(r.Context(), state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireSessionMiddleware はログイン済みのリクエストのみを通すミドルウェアを返す。
// 未ログインの場合はdenyに処理を委ねる（フラッシュメッセージとリダイレクトなど）。
func NewRequireSessionMiddleware(deny http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !SessionStateFromContext(r.Context()).IsAuthenticated() {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionStateFromContext はリクエストコンテキストからセッション状態を取得する。
// セッションミドルウェアを通過していない場合は未ログイン状態を返す。
func SessionStateFromContext(ctx context.Context) model.SessionState {
	state, ok := ctx.Value(sessionStateContextKey).(model.SessionState)
	if !ok {
		return model.AnonymousState()
	}
	return state
}

// ContextWithSessionState はコンテキストにセッション状態を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSessionState(ctx context.Context, state model.SessionState) context.Context {
	return context.WithValue(ctx, sessionStateContextKey, state)
}

// UserIDFromContext はリクエストコンテキストからログイン中のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	state := SessionStateFromContext(ctx)
	if !state.IsAuthenticated() {
		return "", fmt.Errorf("user ID not found in context")
	}
	return state.UserID, nil
}
