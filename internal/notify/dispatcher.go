// Package notify delivers leads and maintenance reminders to the store, the
// Notion lead database and an optional webhook. Delivery happens off the
// request path; failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
)

// LeadStore is the slice of the store the dispatcher writes to.
type LeadStore interface {
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	CreateReminders(ctx context.Context, reminders []model.Reminder) error
	ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// LeadSink receives every stored lead, e.g. the Notion lead database.
type LeadSink func(ctx context.Context, lead model.Lead) error

// Options configures a Dispatcher.
type Options struct {
	Store   LeadStore
	Notion  LeadSink
	Webhook *Webhook
	Metrics *metrics.Collector

	// Timeout bounds one job's deliveries.
	Timeout time.Duration

	// QueueSize is the number of pending jobs before new ones are dropped.
	QueueSize int
}

type job struct {
	name string
	run  func(ctx context.Context)
}

// Dispatcher runs deliveries on a single background worker, so a lead is
// always stored before its reminders.
type Dispatcher struct {
	opts Options
	now  func() time.Time

	jobs   chan job
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the background worker.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	d := &Dispatcher{
		opts: opts,
		now:  time.Now,
		jobs: make(chan job, opts.QueueSize),
		done: make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.done)
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		j.run(ctx)
		cancel()
	}
}

func (d *Dispatcher) enqueue(j job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		zap.L().Warn("notify: dispatcher closed, dropping job", zap.String("job", j.name))
		return false
	}
	select {
	case d.jobs <- j:
		return true
	default:
		zap.L().Warn("notify: queue full, dropping job", zap.String("job", j.name))
		return false
	}
}

// SubmitLead assigns the lead an ID and creation time and queues its
// delivery. The returned lead is what will be stored.
func (d *Dispatcher) SubmitLead(_ context.Context, lead model.Lead) model.Lead {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = d.now().UTC()
	}

	d.enqueue(job{name: "lead " + lead.ID, run: func(ctx context.Context) {
		d.deliverLead(ctx, lead)
	}})
	return lead
}

func (d *Dispatcher) deliverLead(ctx context.Context, lead model.Lead) {
	log := zap.L().With(zap.String("lead_id", lead.ID))

	if d.opts.Store != nil {
		_, err := d.opts.Store.CreateLead(ctx, lead)
		d.opts.Metrics.Notification("store", err)
		if err != nil {
			log.Error("notify: store lead", zap.Error(err))
		}
	}
	if d.opts.Notion != nil {
		err := d.opts.Notion(ctx, lead)
		d.opts.Metrics.Notification("notion", err)
		if err != nil {
			log.Error("notify: notion lead", zap.Error(err))
		}
	}
	if d.opts.Webhook != nil {
		err := d.opts.Webhook.Send(ctx, Event{Type: EventLeadCreated, Lead: &lead, Timestamp: d.now().UTC()})
		d.opts.Metrics.Notification("webhook", err)
		if err != nil {
			log.Error("notify: webhook lead", zap.Error(err))
		}
	}
	log.Info("notify: lead delivered", zap.String("action", string(lead.Action)))
}

// ScheduleReminders queues one reminder per maintenance task. Locked tasks
// get no reminder and overdue tasks are due immediately.
func (d *Dispatcher) ScheduleReminders(_ context.Context, leadID string, tasks []model.MaintenanceTask) []model.Reminder {
	reminders := Reminders(leadID, tasks, d.now().UTC())
	if len(reminders) == 0 || d.opts.Store == nil {
		return reminders
	}

	d.enqueue(job{name: "reminders " + leadID, run: func(ctx context.Context) {
		err := d.opts.Store.CreateReminders(ctx, reminders)
		d.opts.Metrics.Notification("store", err)
		if err != nil {
			zap.L().Error("notify: store reminders",
				zap.String("lead_id", leadID),
				zap.Error(err),
			)
		}
	}})
	return reminders
}

// Reminders builds the reminders for tasks relative to now.
func Reminders(leadID string, tasks []model.MaintenanceTask, now time.Time) []model.Reminder {
	var out []model.Reminder
	for _, t := range tasks {
		if t.Locked || t.Urgency == model.TaskLocked {
			continue
		}
		out = append(out, model.Reminder{
			ID:        uuid.NewString(),
			LeadID:    leadID,
			Task:      t.Type,
			Title:     t.Title,
			DueAt:     now.AddDate(0, max(t.MonthsUntilDue, 0), 0),
			Status:    model.ReminderPending,
			CreatedAt: now,
		})
	}
	return out
}

// DeliverDue sends every reminder that is due to the webhook and marks it
// sent. It runs synchronously and returns how many were delivered.
func (d *Dispatcher) DeliverDue(ctx context.Context) (int, error) {
	if d.opts.Store == nil {
		return 0, eris.New("notify: no store configured")
	}
	due, err := d.opts.Store.ListDueReminders(ctx, d.now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "notify: list due reminders")
	}

	sent := 0
	for _, r := range due {
		if d.opts.Webhook != nil {
			err := d.opts.Webhook.Send(ctx, Event{Type: EventReminderDue, Reminder: &r, Timestamp: d.now().UTC()})
			d.opts.Metrics.Notification("webhook", err)
			if err != nil {
				zap.L().Error("notify: webhook reminder",
					zap.String("reminder_id", r.ID),
					zap.Error(err),
				)
				continue
			}
		}
		if err := d.opts.Store.MarkReminderSent(ctx, r.ID); err != nil {
			return sent, eris.Wrapf(err, "notify: mark reminder %s sent", r.ID)
		}
		sent++
	}
	return sent, nil
}

// Wait stops accepting jobs and blocks until the queued ones finish.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	<-d.done
}
