package executor

import (
	"context"
	"fmt"
	"reflect"

	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clicklens/analytics-api/internal/warehouse"
)

// Dialect selects the placeholder and cast syntax a warehouse speaks.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectClickHouse
)

// Placeholder renders the positional parameter at 1-based index i.
func (d Dialect) Placeholder(i int) string {
	if d == DialectClickHouse {
		return "?"
	}
	return fmt.Sprintf("$%d", i)
}

// CastFloat renders a float cast around expr.
func (d Dialect) CastFloat(expr string) string {
	if d == DialectClickHouse {
		return "toFloat64(" + expr + ")"
	}
	return expr + "::FLOAT"
}

// Querier is the minimal connection contract the direct executor needs:
// parameterized fetch and fetch-scalar against an arbitrary-SQL backend.
type Querier interface {
	QueryRows(ctx context.Context, sql string, args ...any) ([]warehouse.Row, error)
	QueryScalar(ctx context.Context, sql string, args ...any) (any, error)
	Dialect() Dialect
}

// PgxQuerier adapts a pgx connection pool to the Querier contract.
type PgxQuerier struct {
	Pool *pgxpool.Pool
}

func (q *PgxQuerier) Dialect() Dialect { return DialectPostgres }

func (q *PgxQuerier) QueryRows(ctx context.Context, sql string, args ...any) ([]warehouse.Row, error) {
	rows, err := q.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []warehouse.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(warehouse.Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q *PgxQuerier) QueryScalar(ctx context.Context, sql string, args ...any) (any, error) {
	var v any
	if err := q.Pool.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ClickHouseQuerier adapts a native ClickHouse connection.
type ClickHouseQuerier struct {
	Conn chdriver.Conn
}

func (q *ClickHouseQuerier) Dialect() Dialect { return DialectClickHouse }

func (q *ClickHouseQuerier) QueryRows(ctx context.Context, sql string, args ...any) ([]warehouse.Row, error) {
	rows, err := q.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	names := rows.Columns()
	out := []warehouse.Row{}
	for rows.Next() {
		dest := make([]any, len(types))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(warehouse.Row, len(names))
		for i, name := range names {
			row[name] = reflect.ValueOf(dest[i]).Elem().Interface()
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q *ClickHouseQuerier) QueryScalar(ctx context.Context, sql string, args ...any) (any, error) {
	rows, err := q.QueryRows(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	for _, v := range rows[0] {
		return v, nil // scalar plans project a single column
	}
	return nil, nil
}
