// Package cleanup は失効済みトークン記録の自動削除ジョブを提供する。
// 有効期限を過ぎたjtiは検証時に署名の期限切れで拒否されるため、
// revoked_tokensから削除しても失効判定は変わらない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数のメトリクス記録インターフェース。
type Recorder interface {
	RecordRevocationsPurged(count int)
}

// CleanupJob は期限切れの失効記録を削除するジョブ。
// 冪等な削除処理のため、複数のworkerが同時に実行しても問題ない。
type CleanupJob struct {
	db     Executor
	rec    Recorder
	logger *slog.Logger
	// Grace は有効期限からさらに保持する猶予期間。時刻のずれを吸収する。
	Grace time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。recはnilでもよい。
func NewCleanupJob(db Executor, rec Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:     db,
		rec:    rec,
		logger: logger,
		Grace:  time.Minute,
	}
}

// Run はexpires_atが猶予期間を超えて過去になった失効記録を削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d seconds", int64(j.Grace.Seconds()))

	query := `DELETE FROM revoked_tokens WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("revoked token cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("failed to read purged row count",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to read purged row count: %w", err)
	}

	if j.rec != nil {
		j.rec.RecordRevocationsPurged(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("revoked token cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行し、ctxのキャンセルで終了する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.logger.Info("cleanup worker started", slog.Duration("interval", interval))

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
