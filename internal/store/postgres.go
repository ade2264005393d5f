package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/db"
	"github.com/sells-group/opterra/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// preparedStatements lists the hot-path queries prepared on each new
// connection.
var preparedStatements = map[string]string{
	"get_price":          `SELECT ` + priceColumns + ` FROM prices WHERE id = $1`,
	"insert_lead":        `INSERT INTO leads (` + leadColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"get_lead":           `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`,
	"list_due_reminders": `SELECT ` + reminderColumns + ` FROM reminders WHERE status = $1 AND due_at <= $2 ORDER BY due_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: closeFn, now: func() time.Time { return time.Now().UTC() }}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.pool, migrationFS, "migrations"), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetPrice(ctx context.Context, id string) (*model.PriceQuote, error) {
	q, err := scanPrice(s.pool.QueryRow(ctx, preparedStatements["get_price"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get price %s", id)
	}
	return q, nil
}

// priceUpsert keeps the fresher quote when the seeder and a manual import
// race on a key.
var priceUpsert = db.UpsertConfig{
	Table:        "prices",
	Columns:      strings.Split(strings.ReplaceAll(priceColumns, " ", ""), ","),
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"retail", "wholesale", "confidence", "source", "fetched_at"},
	Where:        `EXCLUDED.fetched_at >= prices.fetched_at`,
}

func (s *PostgresStore) UpsertPrices(ctx context.Context, quotes []model.PriceQuote) (int64, error) {
	rows := make([][]any, 0, len(quotes))
	seen := make(map[string]int, len(quotes))
	now := s.now()
	for _, q := range quotes {
		row := priceRow(q, now)
		id := row[0].(string)
		// ON CONFLICT cannot touch the same row twice in one statement.
		if i, ok := seen[id]; ok {
			rows[i] = row
			continue
		}
		seen[id] = len(rows)
		rows = append(rows, row)
	}

	n, err := db.BulkUpsert(ctx, s.pool, priceUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert prices")
}

func (s *PostgresStore) ListStalePrices(ctx context.Context, before time.Time, limit int) ([]model.PriceQuote, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM prices WHERE fetched_at < $1 ORDER BY fetched_at ASC LIMIT $2`,
		before.UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stale prices")
	}
	defer rows.Close()

	var quotes []model.PriceQuote
	for rows.Next() {
		q, err := scanPrice(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan price")
		}
		quotes = append(quotes, *q)
	}
	return quotes, eris.Wrap(rows.Err(), "postgres: iterate prices")
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	lead = prepareLead(lead, s.now(), uuid.NewString)
	if _, err := s.pool.Exec(ctx, preparedStatements["insert_lead"], leadRow(lead)...); err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx, preparedStatements["get_lead"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argIdx)
		args = append(args, string(filter.Action))
		argIdx++
	}
	if filter.Urgency != "" {
		query += fmt.Sprintf(` AND urgency = $%d`, argIdx)
		args = append(args, string(filter.Urgency))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) CreateReminders(ctx context.Context, reminders []model.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	prepared, err := prepareReminders(reminders, s.now(), uuid.NewString)
	if err != nil {
		return err
	}

	cols := strings.Split(strings.ReplaceAll(reminderColumns, " ", ""), ",")
	_, err = db.CopyFrom(ctx, s.pool, "reminders", cols, prepared, reminderRow)
	return eris.Wrap(err, "postgres: create reminders")
}

func (s *PostgresStore) ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_due_reminders"], string(model.ReminderPending), now.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list due reminders")
	}
	defer rows.Close()

	var out []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan reminder")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate reminders")
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE reminders SET status = $1 WHERE id = $2`, string(model.ReminderSent), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark reminder %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("reminder not found: %s", id)
	}
	return nil
}
