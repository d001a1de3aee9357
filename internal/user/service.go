// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/repository"
)

// UserStore はユーザーの検索と削除のインターフェース。
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	DeleteByUsername(ctx context.Context, username string) (bool, error)
}

// Service はユーザー管理のサービス層。
// 管理者によるユーザー削除のビジネスロジックを提供する。
type Service struct {
	users       UserStore
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users UserStore, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		users:       users,
		sessionRepo: sessionRepo,
	}
}

// DeleteByUsername はユーザーを削除する。
// 削除順序: sessions → user（+ CASCADE: favorite_players）
// 該当ユーザーがいない場合は model.ErrUserNotFound を返す。
func (s *Service) DeleteByUsername(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.NewUserNotFoundError()
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("ユーザー削除を開始します",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	// 1. セッションを削除（ログイン中のブラウザを即時に無効化する）
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（favorite_playersはCASCADE削除）
	deleted, err := s.users.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		// 検索後に別の処理で削除された
		return model.NewUserNotFoundError()
	}

	slog.Info("ユーザー削除が完了しました",
		slog.String("user_id", user.ID),
	)

	return nil
}
