package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/gamblr/internal/model"
)

// NewRecoveryMiddleware はハンドラー内のpanicを回収して500を返すミドルウェアを生成する。
// panicの内容とスタックはログにのみ出力する。
// http.ErrAbortHandlerはレスポンスの中断を意味するので回収しない。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				slog.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", chimw.GetReqID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
					Code:     "INTERNAL_ERROR",
					Message:  "An unexpected error occurred.",
					Category: "system",
					Action:   "Please try again in a moment.",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
