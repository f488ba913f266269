// Package user はユーザー登録・有効化・プロフィール参照のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/smilecook/internal/auth"
	"github.com/hitoshi/smilecook/internal/mail"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/repository"
)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	hasher     auth.PasswordHasher
	activation *ActivationTokens
	publisher  mail.Publisher
	baseURL    string
}

// NewService はServiceの新しいインスタンスを生成する。
// baseURLは有効化リンクの組み立てに使う公開URL。
func NewService(
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	activation *ActivationTokens,
	publisher mail.Publisher,
	baseURL string,
) *Service {
	return &Service{
		userRepo:   userRepo,
		hasher:     hasher,
		activation: activation,
		publisher:  publisher,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Register は未有効化のユーザーを作成し、有効化メールを発行する。
// メール発行の失敗は登録を失敗させずログに記録する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	// 競合時の一意制約違反はCreateの結果で判定する
	if existing, err := s.userRepo.FindByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	} else if existing != nil {
		return nil, model.NewUserExistsError("username")
	}
	if existing, err := s.userRepo.FindByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	} else if existing != nil {
		return nil, model.NewUserExistsError("email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, model.NewUserExistsError("username")
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, model.NewUserExistsError("email")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	s.sendActivationMail(ctx, user)
	return user, nil
}

func (s *Service) sendActivationMail(ctx context.Context, user *model.User) {
	token, err := s.activation.Generate(user.ID)
	if err != nil {
		slog.Error("failed to generate activation token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := mail.Message{
		Email:   user.Email,
		Subject: "Please confirm your registration.",
		Link:    fmt.Sprintf("%s/users/activate/%s", s.baseURL, token),
	}
	if err := s.publisher.SendMessage(ctx, msg); err != nil {
		slog.Error("failed to send activation mail",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Activate は有効化トークンを検証してユーザーを有効化する。既に有効な場合も成功する。
func (s *Service) Activate(ctx context.Context, rawToken string) error {
	userID, err := s.activation.Parse(rawToken)
	if err != nil {
		slog.Warn("activation rejected", slog.String("error", err.Error()))
		return model.NewInvalidActivationError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if user.IsActive {
		return nil
	}

	if err := s.userRepo.Activate(ctx, userID); err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	slog.Info("user activated", slog.String("user_id", userID))
	return nil
}

// GetByUsername はユーザー名でユーザーを取得する。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Me は認証済みユーザー自身を取得する。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
