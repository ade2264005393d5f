package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunReminders delivers due reminders every interval. It blocks until ctx is
// cancelled.
func (d *Dispatcher) RunReminders(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}

	log := zap.L().With(zap.String("component", "notify.reminders"))
	log.Info("starting reminder loop", zap.Duration("interval", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reminder loop stopped")
			return
		case <-ticker.C:
			d.remind(ctx, log)
		}
	}
}

func (d *Dispatcher) remind(ctx context.Context, log *zap.Logger) {
	n, err := d.DeliverDue(ctx)
	if err != nil {
		log.Error("notify: deliver due reminders", zap.Int("delivered", n), zap.Error(err))
		return
	}
	if n == 0 {
		log.Debug("notify: no reminders due")
		return
	}
	log.Info("notify: reminders delivered", zap.Int("delivered", n))
}
