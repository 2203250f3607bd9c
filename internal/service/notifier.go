package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
)

// Sender delivers one notification to whatever channel the cooperative uses
// (email today, push eventually).
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LogSender is the development delivery channel: it just logs.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.Logger.Info("notification delivered",
		"notification_id", n.ID,
		"member_id", n.MemberID,
		"kind", n.Kind,
		"title", n.Title,
	)
	return nil
}

const notifierMaxAttempts = 5

// Notifier drains the outbox that approval transactions write into. Rows
// are claimed with SKIP LOCKED, so several instances can run side by side.
type Notifier struct {
	outbox   notificationStore
	sender   Sender
	logger   *slog.Logger
	interval time.Duration
}

func NewNotifier(outbox notificationStore, sender Sender, logger *slog.Logger, interval time.Duration) *Notifier {
	return &Notifier{outbox: outbox, sender: sender, logger: logger, interval: interval}
}

func (p *Notifier) Start(ctx context.Context) {
	p.logger.Info("notifier started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notifier stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Notifier) poll(ctx context.Context) {
	pending, err := p.outbox.GetPending(ctx, 10)
	if err != nil {
		p.logger.Error("failed to fetch pending notifications", "error", err)
		return
	}

	for _, n := range pending {
		if err := p.deliver(ctx, n); err != nil {
			p.logger.Error("failed to deliver notification",
				"notification_id", n.ID,
				"error", err,
			)
		}
	}
}

func (p *Notifier) deliver(ctx context.Context, n domain.Notification) error {
	if err := p.sender.Send(ctx, n); err != nil {
		status := domain.NotificationStatusPending
		if n.Attempts+1 >= notifierMaxAttempts {
			status = domain.NotificationStatusFailed
			p.logger.Error("notification gave up",
				"notification_id", n.ID,
				"attempts", n.Attempts+1,
				"error", err,
			)
		}
		return p.outbox.UpdateStatus(ctx, n.ID, status)
	}
	return p.outbox.UpdateStatus(ctx, n.ID, domain.NotificationStatusDelivered)
}
