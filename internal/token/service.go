// Package token はJWTアクセストークン・リフレッシュトークンの発行、検証、失効を提供する。
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind はトークン種別を表す。
type Kind string

const (
	// KindAccess は短命のアクセストークン。
	KindAccess Kind = "access"
	// KindRefresh は長命のリフレッシュトークン。
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken は署名・形式・有効期限のいずれかが不正なトークン。
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken は有効期限切れのトークン。
	ErrExpiredToken = errors.New("token has expired")
	// ErrRevokedToken は失効済みのトークン。
	ErrRevokedToken = errors.New("token has been revoked")
	// ErrWrongKind は要求された種別と異なるトークン。
	ErrWrongKind = errors.New("wrong token type")
)

// claims はJWTのペイロード。
type claims struct {
	jwt.RegisteredClaims
	Type  Kind `json:"type"`
	Fresh bool `json:"fresh,omitempty"`
}

// Identity は検証済みトークンから取り出した認証情報。
type Identity struct {
	UserID    string
	JTI       string
	Kind      Kind
	Fresh     bool
	ExpiresAt time.Time
}

// Pair はログイン時に発行されるトークンの組。
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Recorder はトークン操作のメトリクス記録インターフェース。
// metrics.Collector が実装する。
type Recorder interface {
	RecordTokenIssued(kind string)
	RecordTokenRevoked(kind string)
	RecordTokenRejected(reason string)
}

// Config はトークンサービスの設定。
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service はトークンのライフサイクルを管理する。
// Revoke 以外の操作は入力と現在時刻のみに依存する。
type Service struct {
	config Config
	store  RevocationStore
	rec    Recorder
	now    func() time.Time
	logger *slog.Logger
}

// NewService はServiceを生成する。recがnilの場合はメトリクスを記録しない。
func NewService(config Config, store RevocationStore, rec Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: config,
		store:  store,
		rec:    rec,
		now:    time.Now,
		logger: logger,
	}
}

// IssuePair は認証直後のユーザーにfreshなアクセストークンとリフレッシュトークンを発行する。
// 資格情報の検証とアカウント状態の確認は呼び出し側の責務。
func (s *Service) IssuePair(userID string) (*Pair, error) {
	access, err := s.sign(userID, KindAccess, true, s.config.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, KindRefresh, false, s.config.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh は有効なリフレッシュトークンから非freshのアクセストークンを発行する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.Validate(ctx, refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return s.RefreshIdentity(id)
}

// RefreshIdentity は検証済みのリフレッシュトークンから非freshのアクセストークンを発行する。
// RequireRefreshミドルウェアを通過したリクエストで使う。
func (s *Service) RefreshIdentity(id *Identity) (string, error) {
	if id == nil || id.Kind != KindRefresh {
		return "", ErrWrongKind
	}
	access, err := s.sign(id.UserID, KindAccess, false, s.config.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return access, nil
}

// Revoke は有効なトークン（種別を問わない）のjtiを失効ストアに追加する。
// 既に失効済みの場合はErrRevokedTokenを返す。
func (s *Service) Revoke(ctx context.Context, rawToken string) (*Identity, error) {
	id, err := s.Validate(ctx, rawToken, "")
	if err != nil {
		return nil, err
	}
	if err := s.RevokeIdentity(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

// RevokeIdentity は検証済みトークンのjtiを失効ストアに追加する。冪等。
func (s *Service) RevokeIdentity(ctx context.Context, id *Identity) error {
	if err := s.store.Add(ctx, id.JTI, id.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if s.rec != nil {
		s.rec.RecordTokenRevoked(string(id.Kind))
	}
	s.logger.Info("token revoked",
		slog.String("user_id", id.UserID),
		slog.String("jti", id.JTI),
		slog.String("type", string(id.Kind)),
	)
	return nil
}

// Validate は署名、有効期限、種別、失効状態を検証しIdentityを返す。
// kindが空の場合は種別を問わない。
func (s *Service) Validate(ctx context.Context, rawToken string, kind Kind) (*Identity, error) {
	id, err := s.parse(rawToken)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	if kind != "" && id.Kind != kind {
		s.reject(ErrWrongKind)
		return nil, ErrWrongKind
	}

	revoked, err := s.store.Contains(ctx, id.JTI)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		s.reject(ErrRevokedToken)
		return nil, ErrRevokedToken
	}

	return id, nil
}

// sign は指定種別のトークンに署名する。
func (s *Service) sign(userID string, kind Kind, fresh bool, ttl time.Duration) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:  kind,
		Fresh: fresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.config.Secret)
	if err != nil {
		return "", err
	}
	if s.rec != nil {
		s.rec.RecordTokenIssued(string(kind))
	}
	return signed, nil
}

// parse は署名と有効期限を検証してIdentityを返す。失効状態は見ない。
func (s *Service) parse(rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	c := &claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(rawToken, c, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}
	if c.Type != KindAccess && c.Type != KindRefresh {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:    c.Subject,
		JTI:       c.ID,
		Kind:      c.Type,
		Fresh:     c.Fresh,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// reject は検証失敗の理由をメトリクスに記録する。
func (s *Service) reject(err error) {
	if s.rec == nil {
		return
	}
	switch {
	case errors.Is(err, ErrExpiredToken):
		s.rec.RecordTokenRejected("expired")
	case errors.Is(err, ErrRevokedToken):
		s.rec.RecordTokenRejected("revoked")
	case errors.Is(err, ErrWrongKind):
		s.rec.RecordTokenRejected("wrong_type")
	default:
		s.rec.RecordTokenRejected("invalid")
	}
}
