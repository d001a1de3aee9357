package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/gamblr/internal/model"
)

// ErrorResponseBody はページ以外のエンドポイント（/health、レート制限など）で返すJSONエラー。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでJSONエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteServiceUnavailable はデータベースなどの依存先が利用できない場合のレスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteServiceUnavailable(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
		Code:     "SERVICE_UNAVAILABLE",
		Message:  "Service temporarily unavailable.",
		Category: "system",
		Action:   "Please try again in a moment.",
	})
}
