package store

import (
	"time"

	"github.com/sells-group/opterra/internal/model"
)

// scannable is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// priceRow flattens a quote into column order. A quote without a fetch time
// is stamped with now.
func priceRow(q model.PriceQuote, now time.Time) []any {
	fetched := q.FetchedAt
	if fetched.IsZero() {
		fetched = now
	}
	k := q.Key
	return []any{
		k.ID(), k.Manufacturer, k.Model, string(k.FuelType), k.CapacityGallons, string(k.Tier),
		q.Retail, q.Wholesale, q.Confidence, q.Source, fetched.UTC(),
	}
}

func scanPrice(row scannable) (*model.PriceQuote, error) {
	var (
		q    model.PriceQuote
		id   string
		fuel string
		tier string
	)
	if err := row.Scan(&id, &q.Key.Manufacturer, &q.Key.Model, &fuel, &q.Key.CapacityGallons, &tier,
		&q.Retail, &q.Wholesale, &q.Confidence, &q.Source, &q.FetchedAt); err != nil {
		return nil, err
	}
	q.Key.FuelType = model.FuelType(fuel)
	q.Key.Tier = model.Tier(tier)
	return &q, nil
}

func leadRow(l model.Lead) []any {
	return []any{
		l.ID, l.Contact.Name, l.Contact.Email, l.Contact.Phone, l.Contact.ZipCode,
		l.Fingerprint, string(l.Action), l.RuleID, l.HealthScore, string(l.Urgency),
		l.Budget, l.Note, l.CreatedAt.UTC(),
	}
}

func scanLead(row scannable) (*model.Lead, error) {
	var (
		l       model.Lead
		action  string
		urgency string
	)
	if err := row.Scan(&l.ID, &l.Contact.Name, &l.Contact.Email, &l.Contact.Phone, &l.Contact.ZipCode,
		&l.Fingerprint, &action, &l.RuleID, &l.HealthScore, &urgency,
		&l.Budget, &l.Note, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Action = model.Action(action)
	l.Urgency = model.Urgency(urgency)
	return &l, nil
}

func reminderRow(r model.Reminder) []any {
	return []any{r.ID, r.LeadID, string(r.Task), r.Title, r.DueAt.UTC(), string(r.Status), r.CreatedAt.UTC()}
}

func scanReminder(row scannable) (*model.Reminder, error) {
	var (
		r      model.Reminder
		task   string
		status string
	)
	if err := row.Scan(&r.ID, &r.LeadID, &task, &r.Title, &r.DueAt, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Task = model.TaskType(task)
	r.Status = model.ReminderStatus(status)
	return &r, nil
}
