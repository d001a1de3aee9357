// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, favorite, stats, gateway, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因エラー（ログ用。ユーザーには表示しない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, model.ErrAlreadyFavorited) のような判定に使用する。
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	ErrCodeAlreadyFavorited  = "ALREADY_FAVORITED"
	ErrCodeUnauthenticated   = "UNAUTHENTICATED"
	ErrCodeInvalidCategory   = "INVALID_CATEGORY"
	ErrCodeNoGamesAvailable  = "NO_GAMES_AVAILABLE"
	ErrCodeGatewayFailure    = "GATEWAY_FAILURE"
	ErrCodeInvalidPlayerID   = "INVALID_PLAYER_ID"
	ErrCodeInvalidDivision   = "INVALID_DIVISION"
	ErrCodeInvalidThreshold  = "INVALID_THRESHOLD"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
)

// errors.Is で比較するためのセンチネル値。
var (
	ErrDuplicateIdentity = &APIError{Code: ErrCodeDuplicateIdentity}
	ErrAlreadyFavorited  = &APIError{Code: ErrCodeAlreadyFavorited}
	ErrUnauthenticated   = &APIError{Code: ErrCodeUnauthenticated}
	ErrInvalidCategory   = &APIError{Code: ErrCodeInvalidCategory}
	ErrNoGamesAvailable  = &APIError{Code: ErrCodeNoGamesAvailable}
	ErrGatewayFailure    = &APIError{Code: ErrCodeGatewayFailure}
	ErrInvalidPlayerID   = &APIError{Code: ErrCodeInvalidPlayerID}
	ErrInvalidDivision   = &APIError{Code: ErrCodeInvalidDivision}
	ErrInvalidThreshold  = &APIError{Code: ErrCodeInvalidThreshold}
	ErrUserNotFound      = &APIError{Code: ErrCodeUserNotFound}
)

// NewDuplicateIdentityError はユーザー名またはメールアドレスの重複エラーを生成する。
// fieldには "username" または "email" を指定する。
func NewDuplicateIdentityError(field string) *APIError {
	msg := "Username or email already taken."
	switch field {
	case "username":
		msg = "Username already taken."
	case "email":
		msg = "Email already registered."
	}
	return &APIError{
		Code:     ErrCodeDuplicateIdentity,
		Message:  msg,
		Category: "auth",
		Action:   "Choose a different username or email.",
	}
}

// NewAlreadyFavoritedError は既にお気に入り登録済みの選手を再登録しようとした場合のエラーを生成する。
func NewAlreadyFavoritedError(playerID int) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFavorited,
		Message:  "This Player is already favorited!",
		Category: "favorite",
		Action:   fmt.Sprintf("Player %d is already on your favorites list.", playerID),
	}
}

// NewUnauthenticatedError はログインが必要な操作を未ログインで実行した場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "You are not logged in. Please log in or create an account to get started!",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewInvalidCategoryError は未知のスタッツカテゴリが指定された場合のエラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("Unknown stat category: %q", category),
		Category: "validation",
		Action:   "Choose one of points, rebounds or assists.",
	}
}

// NewNoGamesAvailableError は集計対象の試合が存在しない場合のエラーを生成する。
func NewNoGamesAvailableError() *APIError {
	return &APIError{
		Code:     ErrCodeNoGamesAvailable,
		Message:  "No games available for this player this season.",
		Category: "stats",
		Action:   "Try another player or check back after the player has played.",
	}
}

// NewGatewayFailureError は外部スタッツAPIの呼び出し失敗エラーを生成する。
// opには失敗した操作名を指定する。causeはログ用に保持される。
func NewGatewayFailureError(op string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeGatewayFailure,
		Message:  "Error loading data from the stats provider.",
		Category: "gateway",
		Action:   "Please try again in a moment.",
		Err:      fmt.Errorf("%s: %w", op, cause),
	}
}

// NewInvalidPlayerIDError は不正な選手IDが指定された場合のエラーを生成する。
func NewInvalidPlayerIDError(playerID int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlayerID,
		Message:  fmt.Sprintf("Invalid player id: %d", playerID),
		Category: "validation",
		Action:   "Select a player from the search results.",
	}
}

// NewInvalidDivisionError は未知のディビジョン名が指定された場合のエラーを生成する。
func NewInvalidDivisionError(division string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDivision,
		Message:  fmt.Sprintf("Unknown division: %q", division),
		Category: "validation",
		Action:   "Choose one of atlantic, central, southeast, northwest, pacific or southwest.",
	}
}

// NewInvalidThresholdError はライン値が数値として解釈できない場合のエラーを生成する。
func NewInvalidThresholdError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidThreshold,
		Message:  fmt.Sprintf("Invalid betting line: %q", raw),
		Category: "validation",
		Action:   "Enter a number such as 24.5.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Check the username.",
	}
}
