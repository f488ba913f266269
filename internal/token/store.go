package token

import (
	"context"
	"sync"
	"time"
)

// RevocationStore は失効済みjtiの集合を保持するインターフェース。
// Add と Contains は並行に呼ばれても安全でなければならない。
type RevocationStore interface {
	// Add はjtiを失効済みとして登録する。expiresAt以降はエントリを破棄してよい。
	// 既に登録済みの場合は何もしない。
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	// Contains はjtiが失効済みかどうかを返す。
	Contains(ctx context.Context, jti string) (bool, error)
}

// MemoryStore はプロセス内メモリに失効済みjtiを保持するRevocationStore。
// トークンの有効期限を過ぎたエントリはバックグラウンドで定期的に削除される。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryStore はMemoryStoreを生成し、sweepIntervalごとのクリーンアップを開始する。
// sweepIntervalが0以下の場合はバックグラウンドのクリーンアップを行わない。
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Add はjtiを失効済みとして登録する。
func (s *MemoryStore) Add(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[jti]; exists {
		return nil
	}
	s.entries[jti] = expiresAt
	return nil
}

// Contains はjtiが失効済みかどうかを返す。
// 期限切れのエントリはトークン自体が無効なため、削除前でも true を返して問題ない。
func (s *MemoryStore) Contains(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.entries[jti]
	return exists, nil
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep は有効期限を過ぎたエントリを削除し、削除件数を返す。
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jti, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, jti)
			removed++
		}
	}
	return removed
}

// Stop はバックグラウンドのクリーンアップを停止する。複数回呼んでもよい。
func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

// sweepLoop は一定間隔でSweepを実行する。
func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

var _ RevocationStore = (*MemoryStore)(nil)
