package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers a password reset code to its owner.
type Notifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

type Processor struct {
	sessions SessionPurger
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProcessor(sessions SessionPurger, notifier Notifier, logger zerolog.Logger) *Processor {
	return &Processor{
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := decodeTask(msg.Values)
	if err != nil {
		// Malformed payloads are acked and dropped.
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("discarding undecodable task")
		return nil
	}

	switch task.Type {
	case TypeSessionCleanup:
		return p.handleSessionCleanup(ctx)
	case TypeResetCode:
		return p.handleResetCode(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleSessionCleanup(ctx context.Context) error {
	removed, err := p.sessions.DeleteExpired(ctx, p.now())
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	p.logger.Info().Int64("removed", removed).Msg("expired sessions purged")
	return nil
}

func (p *Processor) handleResetCode(ctx context.Context, task Task) error {
	if task.Email == "" || task.Code == "" {
		p.logger.Warn().Str("user_id", task.UserID).Msg("reset code task missing email or code")
		return nil
	}
	if err := p.notifier.SendResetCode(ctx, task.Email, task.Code); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

// LogNotifier writes reset code deliveries to the log with the code masked.
// It stands in for a mail transport.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) SendResetCode(_ context.Context, email, code string) error {
	n.Logger.Info().
		Str("email", email).
		Str("code", MaskCode(code)).
		Msg("password reset code delivered")
	return nil
}

// MaskCode keeps the last two characters of code visible.
func MaskCode(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}
