// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// 作成時は未有効化で、有効化トークンによってのみ IsActive が true になる。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	AvatarImage  string // アップロード済み画像の参照。未設定の場合は空文字列
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail はメールアドレスを比較・保存用に正規化する。
// 前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
