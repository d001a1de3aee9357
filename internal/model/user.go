// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、平文パスワードは保持しない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser はプレゼンテーション層へ渡すユーザー情報。
// パスワードハッシュを含まない。
type PublicUser struct {
	ID       string
	Username string
	Email    string
}

// Public はパスワードハッシュを除いたユーザー情報を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionState はリクエストごとに明示的に受け渡す認証状態。
// ゼロ値は未ログイン（Anonymous）を表す。
type SessionState struct {
	SessionID string
	UserID    string
}

// IsAuthenticated はログイン済みかどうかを返す。
func (s SessionState) IsAuthenticated() bool {
	return s.UserID != ""
}

// AnonymousState は未ログイン状態を返す。
func AnonymousState() SessionState {
	return SessionState{}
}
