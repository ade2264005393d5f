package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/opterra/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prices (
	id           TEXT PRIMARY KEY,
	manufacturer TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	fuel_type    TEXT NOT NULL DEFAULT '',
	capacity     REAL NOT NULL DEFAULT 0,
	tier         TEXT NOT NULL DEFAULT '',
	retail       REAL NOT NULL,
	wholesale    REAL NOT NULL DEFAULT 0,
	confidence   REAL NOT NULL DEFAULT 0,
	source       TEXT NOT NULL,
	fetched_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	zip_code     TEXT NOT NULL DEFAULT '',
	fingerprint  TEXT NOT NULL,
	action       TEXT NOT NULL,
	rule_id      TEXT NOT NULL,
	health_score INTEGER NOT NULL,
	urgency      TEXT NOT NULL,
	budget       REAL NOT NULL DEFAULT 0,
	note         TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	task       TEXT NOT NULL,
	title      TEXT NOT NULL,
	due_at     DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prices_fetched_at ON prices(fetched_at);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, due_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const priceColumns = `id, manufacturer, model, fuel_type, capacity, tier, retail, wholesale, confidence, source, fetched_at`

func (s *SQLiteStore) GetPrice(ctx context.Context, id string) (*model.PriceQuote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+priceColumns+` FROM prices WHERE id = ?`, id)
	q, err := scanPrice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get price %s", id)
	}
	return q, nil
}

// UpsertPrices writes quotes in one transaction. A quote older than the one
// already stored for the key is ignored.
func (s *SQLiteStore) UpsertPrices(ctx context.Context, quotes []model.PriceQuote) (int64, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices (`+priceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	retail = excluded.retail,
	wholesale = excluded.wholesale,
	confidence = excluded.confidence,
	source = excluded.source,
	fetched_at = excluded.fetched_at
WHERE excluded.fetched_at >= prices.fetched_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare price upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, q := range quotes {
		res, err := stmt.ExecContext(ctx, priceRow(q, s.now())...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert price %s", q.Key.ID())
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit prices")
	}
	return n, nil
}

func (s *SQLiteStore) ListStalePrices(ctx context.Context, before time.Time, limit int) ([]model.PriceQuote, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM prices WHERE fetched_at < ? ORDER BY fetched_at ASC LIMIT ?`,
		before.UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale prices")
	}
	defer rows.Close() //nolint:errcheck

	var quotes []model.PriceQuote
	for rows.Next() {
		q, err := scanPrice(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price")
		}
		quotes = append(quotes, *q)
	}
	return quotes, eris.Wrap(rows.Err(), "sqlite: iterate prices")
}

const leadColumns = `id, name, email, phone, zip_code, fingerprint, action, rule_id, health_score, urgency, budget, note, created_at`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	lead = prepareLead(lead, s.now(), uuid.NewString)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		leadRow(lead)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(filter.Action))
	}
	if filter.Urgency != "" {
		query += ` AND urgency = ?`
		args = append(args, string(filter.Urgency))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

const reminderColumns = `id, lead_id, task, title, due_at, status, created_at`

func (s *SQLiteStore) CreateReminders(ctx context.Context, reminders []model.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	prepared, err := prepareReminders(reminders, s.now(), uuid.NewString)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range prepared {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (`+reminderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			reminderRow(r)...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert reminder for lead %s", r.LeadID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reminders")
}

func (s *SQLiteStore) ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE status = ? AND due_at <= ? ORDER BY due_at ASC`,
		string(model.ReminderPending), now.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list due reminders")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reminder")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate reminders")
}

func (s *SQLiteStore) MarkReminderSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ? WHERE id = ?`, string(model.ReminderSent), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark reminder %s", id)
	}
	return checkRowsAffected(res, "reminder", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
