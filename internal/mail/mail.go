// Package mail は送信メールの口。SMTPMailerが本番、LogMailerは開発とテスト用
package mail

import (
	"context"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type LogMailer struct {
	from string
	log  *zap.Logger
}

func NewLogMailer(from string, log *zap.Logger) *LogMailer {
	return &LogMailer{from: from, log: log}
}

// 本文にはトークンが入るのでdebugのみ
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("mail queued",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	m.log.Debug("mail body", zap.String("to", msg.To), zap.String("body", msg.Body))
	return nil
}
