package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revoked:"

// RedisStore はRedisに失効済みjtiを保持するRevocationStore。
// キーのTTLをトークンの残り有効期間に合わせるため、期限切れエントリは自動で消える。
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore はRedisへ接続しRedisStoreを生成する。
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

// Add はjtiをSET NXで登録する。既存キーは上書きしない。
func (s *RedisStore) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		// 既に期限切れのトークンは検証で弾かれるため保持不要
		return nil
	}
	if err := s.client.SetNX(ctx, redisKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked jti: %w", err)
	}
	return nil
}

// Contains はjtiのキーが存在するかどうかを返す。
func (s *RedisStore) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked jti: %w", err)
	}
	return n > 0, nil
}

// Close はRedis接続を閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ RevocationStore = (*RedisStore)(nil)
