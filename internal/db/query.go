package db

import (
	"context"
	"database/sql"
	"errors"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Conn is satisfied by the Ent SQL driver and by an open transaction,
// so the same query helpers serve both.
type Conn = dialect.ExecQuerier

// ErrNoRows is returned by One when the query matched nothing.
var ErrNoRows = sql.ErrNoRows

// Exec runs a write statement and returns the number of affected rows.
func Exec(ctx context.Context, c Conn, b entsql.Querier) (int64, error) {
	query, args := b.Query()
	var res entsql.Result
	if err := c.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// All scans every row into T using the `sql` struct tags.
func All[T any](ctx context.Context, c Conn, b entsql.Querier) ([]T, error) {
	query, args := b.Query()
	rows := &entsql.Rows{}
	if err := c.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	if err := entsql.ScanSlice(rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first row or ErrNoRows.
func One[T any](ctx context.Context, c Conn, b entsql.Querier) (T, error) {
	var zero T
	items, err := All[T](ctx, c, b)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoRows
	}
	return items[0], nil
}

// Count runs a COUNT selector and returns the scalar.
func Count(ctx context.Context, c Conn, b entsql.Querier) (int, error) {
	query, args := b.Query()
	rows := &entsql.Rows{}
	if err := c.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	return entsql.ScanInt(rows)
}

// IsNoRows reports whether err means an empty result.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
