package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams items into table with the COPY protocol, mapping each
// through row. The table may be schema-qualified ("public.reminders").
func CopyFrom[T any](ctx context.Context, pool Pool, table string, columns []string, items []T, row func(T) []any) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	i := 0
	src := pgx.CopyFromFunc(func() ([]any, error) {
		if i >= len(items) {
			return nil, nil
		}
		r := row(items[i])
		i++
		return r, nil
	})
	n, err := pool.CopyFrom(ctx, identifier(table), columns, src)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}
