// Package repository はデータ永続化のインターフェースを定義する。
//
// 見つからない場合（NotFound）は nil, nil を返し、エラーにはしない。
// 一意制約・外部キー制約違反（ConstraintViolation）は *ConstraintViolationError で返す。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/gamblr/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// username / email の重複時は *ConstraintViolationError を返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// DeleteByUsername はユーザー名でユーザーを削除し、削除したかどうかを返す。
	// favorite_players、sessionsはCASCADE削除される。
	DeleteByUsername(ctx context.Context, username string) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// FavoriteRepository はお気に入り選手データの永続化インターフェース。
type FavoriteRepository interface {
	// Create はお気に入りを作成する。
	// (user_id, player_id) の重複時、またはuser_idが存在しない場合は *ConstraintViolationError を返す。
	Create(ctx context.Context, entry *model.FavoriteEntry) error

	// FindByUserAndPlayer はユーザーIDと選手IDでお気に入りを検索する。見つからない場合はnilを返す。
	FindByUserAndPlayer(ctx context.Context, userID string, playerID int) (*model.FavoriteEntry, error)

	// ListByUserID はユーザーのお気に入り一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.FavoriteEntry, error)

	// DeleteByUserAndPlayer は該当するお気に入りを削除し、削除したかどうかを返す。
	DeleteByUserAndPlayer(ctx context.Context, userID string, playerID int) (bool, error)
}

// 制約名。マイグレーションで明示的に命名している。
const (
	ConstraintUsersUsername      = "users_username_key"
	ConstraintUsersEmail         = "users_email_key"
	ConstraintFavoriteUserPlayer = "favorite_players_user_player_key"
	ConstraintFavoriteUserFK     = "favorite_players_user_id_fkey"
)

// DBTX は *sql.DB と *sql.Tx の共通インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
