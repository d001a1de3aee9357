// Package auth はアカウント登録・パスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/gamblr/internal/metrics"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// SignUpInput はアカウント登録の入力値。
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      *PasswordHasher
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher *PasswordHasher,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		metrics:     collector,
		config:      config,
	}
}

// SignUp は新しいユーザーを登録する。
// username / email が既に使われている場合は model.ErrDuplicateIdentity を返し、何も書き込まない。
// 重複判定はusersテーブルの一意制約の結果のみに基づく。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if cv, ok := repository.AsConstraintViolation(err); ok && cv.Kind == repository.ViolationUnique {
			s.recordAuth("signup", metrics.OutcomeFailure)
			return nil, model.NewDuplicateIdentityError(duplicateField(cv.Constraint))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.recordAuth("signup", metrics.OutcomeSuccess)
	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// duplicateField は一意制約名から重複したフィールド名を返す。
func duplicateField(constraint string) string {
	switch constraint {
	case repository.ConstraintUsersUsername:
		return "username"
	case repository.ConstraintUsersEmail:
		return "email"
	default:
		return ""
	}
}

// Authenticate はユーザー名とパスワードを照合する。
// ユーザーが存在しない場合とパスワードが誤っている場合はどちらも nil, nil を返し、区別しない。
// エラーを返すのはストアの障害時のみ。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		s.hasher.VerifyDummy(password)
		s.recordAuth("login", metrics.OutcomeFailure)
		return nil, nil
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.recordAuth("login", metrics.OutcomeFailure)
		return nil, nil
	}

	s.recordAuth("login", metrics.OutcomeSuccess)
	return user, nil
}

// Login はユーザーのセッションを発行する。
// 既存のセッションがあれば破棄してから新しいセッションを作成する（再ログインは上書き）。
func (s *Service) Login(ctx context.Context, current model.SessionState, user *model.User) (*model.Session, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	if current.SessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, current.SessionID); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

// Logout はセッションを破棄する。未ログイン状態では何もしない。
func (s *Service) Logout(ctx context.Context, state model.SessionState) error {
	if state.SessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, state.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", state.UserID))
	return nil
}

// CurrentUser はセッション状態から現在のユーザーを返す。
// 未ログイン、セッション切れ、ユーザー削除済み、ストア障害のいずれでもnilを返し、エラーにはしない。
func (s *Service) CurrentUser(ctx context.Context, state model.SessionState) *model.User {
	if !state.IsAuthenticated() {
		return nil
	}

	user, err := s.userRepo.FindByID(ctx, state.UserID)
	if err != nil {
		slog.Error("failed to load current user",
			slog.String("user_id", state.UserID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// ResolveSession はセッションIDからセッション状態を復元する。
// セッションが見つからない、期限切れ、ストア障害の場合は未ログイン状態を返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) model.SessionState {
	if sessionID == "" {
		return model.AnonymousState()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		slog.Error("failed to resolve session", slog.String("error", err.Error()))
		return model.AnonymousState()
	}
	if session == nil {
		return model.AnonymousState()
	}

	return model.SessionState{SessionID: session.ID, UserID: session.UserID}
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) recordAuth(event, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthEvent(event, outcome)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
