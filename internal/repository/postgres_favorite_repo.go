package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/gamblr/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入り選手リポジトリ。
type PostgresFavoriteRepo struct {
	db DBTX
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db DBTX) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Create はお気に入りを作成する。
// 重複判定は事前検索ではなく favorite_players_user_player_key 制約に委ねる。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, entry *model.FavoriteEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorite_players (id, user_id, player_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.UserID, entry.PlayerID, entry.CreatedAt,
	)
	if err != nil {
		if cv, ok := translateError(err).(*ConstraintViolationError); ok {
			return cv
		}
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByUserAndPlayer はユーザーIDと選手IDでお気に入りを検索する。見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) FindByUserAndPlayer(ctx context.Context, userID string, playerID int) (*model.FavoriteEntry, error) {
	entry := &model.FavoriteEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, player_id, created_at
		 FROM favorite_players WHERE user_id = $1 AND player_id = $2`,
		userID, playerID,
	).Scan(&entry.ID, &entry.UserID, &entry.PlayerID, &entry.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}

	return entry, nil
}

// ListByUserID はユーザーのお気に入り一覧を登録順で返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.FavoriteEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, player_id, created_at
		 FROM favorite_players WHERE user_id = $1
		 ORDER BY created_at ASC, player_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.FavoriteEntry
	for rows.Next() {
		entry := &model.FavoriteEntry{}
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.PlayerID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("お気に入りのスキャンに失敗しました: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// DeleteByUserAndPlayer は該当するお気に入りを削除する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresFavoriteRepo) DeleteByUserAndPlayer(ctx context.Context, userID string, playerID int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_players WHERE user_id = $1 AND player_id = $2`,
		userID, playerID,
	)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
