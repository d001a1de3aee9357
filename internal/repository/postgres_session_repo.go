package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/gamblr/internal/model"
)

const (
	insertSessionSQL = `INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`

	// 期限切れの行はワーカーが消すまで残るため、読み出し時にも期限を確認する
	selectLiveSessionSQL = `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1 AND expires_at > now()`

	deleteSessionSQL      = `DELETE FROM sessions WHERE id = $1`
	deleteUserSessionsSQL = `DELETE FROM sessions WHERE user_id = $1`
)

// PostgresSessionRepo はsessionsテーブルに対するSessionRepositoryの実装。
type PostgresSessionRepo struct {
	db DBTX
}

func NewPostgresSessionRepo(db DBTX) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを保存する。ユーザーが存在しない場合は *ConstraintViolationError を返す。
func (r *PostgresSessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx, insertSessionSQL, s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err == nil {
		return nil
	}

	if cv, ok := AsConstraintViolation(translateError(err)); ok {
		return cv
	}
	return fmt.Errorf("failed to create session: %w", err)
}

// FindByID は有効期限内のセッションを返す。見つからない場合は (nil, nil)。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	row := r.db.QueryRowContext(ctx, selectLiveSessionSQL, id)
	switch err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &s, nil
}

func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.exec(ctx, "delete session", deleteSessionSQL, id)
}

func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.exec(ctx, "delete user sessions", deleteUserSessionsSQL, userID)
}

func (r *PostgresSessionRepo) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
