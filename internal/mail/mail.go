// Package mail はメール送信要求をメッセージキューへ発行する。
// 実際の送信は別プロセスのメール送信ワーカーが行う。
package mail

import (
	"context"
	"log/slog"
)

// Message はメール送信ワーカーに渡すメッセージ。
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Link    string `json:"link"`
}

// Publisher はメッセージを発行するインターフェース。
type Publisher interface {
	SendMessage(ctx context.Context, msg Message) error
}

// LogPublisher はメッセージキューを使わずにログへ出力するPublisher。
// AMQP_URLが未設定の開発環境で使う。
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher はLogPublisherを生成する。loggerがnilの場合はslog.Default()を使う。
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// SendMessage はメッセージをログに出力する。
func (p *LogPublisher) SendMessage(ctx context.Context, msg Message) error {
	p.logger.InfoContext(ctx, "mail message",
		slog.String("to", msg.Email),
		slog.String("subject", msg.Subject),
		slog.String("link", msg.Link),
	)
	return nil
}
