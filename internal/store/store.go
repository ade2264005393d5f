// Package store persists the price cache, contractor leads and maintenance
// reminders. SQLite serves single-node installs; Postgres serves the API.
package store

import (
	"cmp"
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/db"
	"github.com/sells-group/opterra/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Action  model.Action  `json:"action,omitempty"`
	Urgency model.Urgency `json:"urgency,omitempty"`
	Since   time.Time     `json:"since,omitzero"`
	Limit   int           `json:"limit,omitempty"`
	Offset  int           `json:"offset,omitempty"`
}

// Store defines the persistence interface for the assessment collaborators.
type Store interface {
	// Prices. GetPrice returns nil, nil when the key has never been quoted.
	GetPrice(ctx context.Context, id string) (*model.PriceQuote, error)
	UpsertPrices(ctx context.Context, quotes []model.PriceQuote) (int64, error)
	ListStalePrices(ctx context.Context, before time.Time, limit int) ([]model.PriceQuote, error)

	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Reminders
	CreateReminders(ctx context.Context, reminders []model.Reminder) error
	ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cmp.Or(cfg.SQLitePath, "opterra.db"))
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// prepareLead assigns the ID and creation time when absent.
func prepareLead(lead model.Lead, now time.Time, newID func() string) model.Lead {
	if lead.ID == "" {
		lead.ID = newID()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	return lead
}

// prepareReminders fills IDs, status and creation time and rejects reminders
// without a lead.
func prepareReminders(reminders []model.Reminder, now time.Time, newID func() string) ([]model.Reminder, error) {
	out := make([]model.Reminder, len(reminders))
	for i, r := range reminders {
		if r.LeadID == "" {
			return nil, eris.Errorf("store: reminder %q has no lead", r.Title)
		}
		if r.ID == "" {
			r.ID = newID()
		}
		if r.Status == "" {
			r.Status = model.ReminderPending
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		out[i] = r
	}
	return out, nil
}
