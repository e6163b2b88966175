package channel

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogSender is a stand-in provider client that logs instead of delivering.
// The worker wires one per channel until real provider credentials exist.
type LogSender struct {
	Channel Channel
	Logger  zerolog.Logger
	Delay   time.Duration
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.Logger.Info().
		Str("channel", string(s.Channel)).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_len", len(msg.Body)).
		Msg("message dispatched")
	return nil
}
