// Package favorite はユーザーごとのお気に入り選手の管理を提供する。
package favorite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/gamblr/internal/metrics"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/repository"
)

// Service はお気に入り選手のサービス層。
// 全操作で未ログイン状態を拒否し、その場合はリポジトリに一切アクセスしない。
type Service struct {
	repo    repository.FavoriteRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilでもよい。
func NewService(repo repository.FavoriteRepository, collector metrics.MetricsCollector) *Service {
	return &Service{repo: repo, metrics: collector}
}

// Add は選手をお気に入りに追加する。
// 既に登録済みの場合は model.ErrAlreadyFavorited を返し、何も書き込まない。
// 重複判定は (user_id, player_id) の一意制約違反のみに基づく。
func (s *Service) Add(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error) {
	if !state.IsAuthenticated() {
		return nil, model.NewUnauthenticatedError()
	}
	if playerID <= 0 {
		return nil, model.NewInvalidPlayerIDError(playerID)
	}

	entry := &model.FavoriteEntry{
		ID:        uuid.New().String(),
		UserID:    state.UserID,
		PlayerID:  playerID,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if cv, ok := repository.AsConstraintViolation(err); ok {
			switch cv.Kind {
			case repository.ViolationUnique:
				return nil, model.NewAlreadyFavoritedError(playerID)
			case repository.ViolationForeignKey:
				// セッション中にユーザーが削除された
				return nil, model.NewUnauthenticatedError()
			}
		}
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}

	s.record("add")
	slog.Info("favorite player added",
		slog.String("user_id", state.UserID),
		slog.Int("player_id", playerID),
	)
	return entry, nil
}

// Remove はお気に入りから選手を削除し、削除したかどうかを返す。
// 登録されていない選手の削除はfalseを返し、エラーにはしない。
func (s *Service) Remove(ctx context.Context, state model.SessionState, playerID int) (bool, error) {
	if !state.IsAuthenticated() {
		return false, model.NewUnauthenticatedError()
	}

	removed, err := s.repo.DeleteByUserAndPlayer(ctx, state.UserID, playerID)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}

	if removed {
		s.record("remove")
		slog.Info("favorite player removed",
			slog.String("user_id", state.UserID),
			slog.Int("player_id", playerID),
		)
	}
	return removed, nil
}

// ListFor はログイン中ユーザーのお気に入り一覧を登録順で返す。
func (s *Service) ListFor(ctx context.Context, state model.SessionState) ([]*model.FavoriteEntry, error) {
	if !state.IsAuthenticated() {
		return nil, model.NewUnauthenticatedError()
	}

	entries, err := s.repo.ListByUserID(ctx, state.UserID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// IsFavorited は選手がお気に入り登録済みかどうかを返す。未ログインの場合はfalse。
func (s *Service) IsFavorited(ctx context.Context, state model.SessionState, playerID int) (bool, error) {
	if !state.IsAuthenticated() {
		return false, nil
	}

	entry, err := s.repo.FindByUserAndPlayer(ctx, state.UserID, playerID)
	if err != nil {
		return false, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}
	return entry != nil, nil
}

func (s *Service) record(action string) {
	if s.metrics != nil {
		s.metrics.RecordFavoriteChange(action)
	}
}
