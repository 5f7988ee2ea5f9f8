package delivery

import (
	"context"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
)

// LogSender logs notifications instead of sending them. Used for dry runs.
type LogSender struct {
	kind model.ChannelType
	log  logger.Logger
}

// NewLogSender builds a dry-run sender for kind.
func NewLogSender(kind model.ChannelType, l logger.Logger) *LogSender {
	if l == nil {
		l = logger.Get().Named("delivery")
	}
	return &LogSender{kind: kind, log: l}
}

func (s *LogSender) Send(ctx context.Context, target string, n model.Notification) error {
	s.log.Info(ctx, "dry-run delivery",
		logger.String("channel", string(s.kind)),
		logger.String("target", target),
		logger.String("subject", n.Subject),
		logger.String("body", n.Body))
	return nil
}
