package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const activationPurpose = "account_activation"

// ErrInvalidActivationToken は有効化トークンが不正・期限切れ・用途違いの場合のエラー。
var ErrInvalidActivationToken = errors.New("invalid activation token")

type activationClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// ActivationTokens はアカウント有効化用の署名付きトークンを発行・検証する。
// アクセストークンとは別の秘密鍵を使う。
type ActivationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewActivationTokens はActivationTokensを生成する。
func NewActivationTokens(secret []byte, ttl time.Duration) *ActivationTokens {
	return &ActivationTokens{secret: secret, ttl: ttl, now: time.Now}
}

// Generate はユーザーIDを埋め込んだ有効化トークンを発行する。
func (a *ActivationTokens) Generate(userID string) (string, error) {
	now := a.now()
	claims := activationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Purpose: activationPurpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign activation token: %w", err)
	}
	return signed, nil
}

// Parse は有効化トークンを検証し、ユーザーIDを返す。
func (a *ActivationTokens) Parse(raw string) (string, error) {
	claims := &activationClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidActivationToken, err)
	}
	if claims.Purpose != activationPurpose || claims.Subject == "" {
		return "", ErrInvalidActivationToken
	}
	return claims.Subject, nil
}
