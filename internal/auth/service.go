// Package auth は資格情報の検証とログイン時のトークン発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/token"
)

// dummyHash はユーザーが存在しない場合にも比較処理を行い、応答時間からの存在推測を防ぐためのハッシュ。
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZaPKZ0jv.p1V0ZjyH4jK2y"

// UserFinder はメールアドレスでユーザーを検索するインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenIssuer はトークンの組を発行するインターフェース。
type TokenIssuer interface {
	IssuePair(userID string) (*token.Pair, error)
}

// FailureRecorder はログイン失敗のメトリクス記録インターフェース。
type FailureRecorder interface {
	RecordLoginFailure(reason string)
}

// Service は資格情報の検証とログインを提供する。
type Service struct {
	users  UserFinder
	hasher PasswordHasher
	tokens TokenIssuer
	rec    FailureRecorder
}

// NewService はServiceを生成する。recはnilでもよい。
func NewService(users UserFinder, hasher PasswordHasher, tokens TokenIssuer, rec FailureRecorder) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		rec:    rec,
	}
}

// Verify はメールアドレスとパスワードを検証し、一致したユーザーを返す。
// ユーザー不在とパスワード不一致は同じエラーを返す。ハッシュはログに出さない。
func (s *Service) Verify(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		_ = s.hasher.Compare(dummyHash, password)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	return user, nil
}

// Login は資格情報を検証し、有効なアカウントにのみトークンの組を発行する。
// 資格情報が不正な場合はINVALID_CREDENTIALS、未有効化の場合はINACTIVE_ACCOUNTを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*token.Pair, error) {
	user, err := s.Verify(ctx, email, password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.recordFailure("invalid_credentials")
			slog.Warn("login failed", slog.String("reason", "invalid_credentials"))
		}
		return nil, err
	}

	if !user.IsActive {
		s.recordFailure("inactive_account")
		slog.Warn("login failed",
			slog.String("reason", "inactive_account"),
			slog.String("user_id", user.ID),
		)
		return nil, model.NewInactiveAccountError()
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

func (s *Service) recordFailure(reason string) {
	if s.rec != nil {
		s.rec.RecordLoginFailure(reason)
	}
}
