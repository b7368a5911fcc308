package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// maxParams is the bind-parameter limit of the postgres wire protocol.
const maxParams = 65535

// upsertTable describes a bulk INSERT ... ON CONFLICT (id) DO UPDATE target.
// The first column must be the primary key.
type upsertTable struct {
	name    string
	columns []string
}

func (t upsertTable) rowsPerStatement() int {
	return maxParams / len(t.columns)
}

func (t upsertTable) statement(rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.name)
	b.WriteString(" (")
	b.WriteString(strings.Join(t.columns, ", "))
	b.WriteString(") VALUES ")

	n := 1
	for r := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(t.columns[0])
	b.WriteString(")")
	if len(t.columns) == 1 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, col := range t.columns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}
	return b.String()
}

// dedupeLast keeps the last occurrence of every key, preserving the order
// in which those survivors appear. Postgres rejects a statement that
// touches the same conflict target twice.
func dedupeLast[T any, K comparable](items []T, key func(T) K) []T {
	last := make(map[K]int, len(items))
	for i, item := range items {
		last[key(item)] = i
	}
	if len(last) == len(items) {
		return items
	}

	out := make([]T, 0, len(last))
	for i, item := range items {
		if last[key(item)] == i {
			out = append(out, item)
		}
	}
	return out
}

// bulkUpsert writes items in as few statements as the parameter limit
// allows. All chunks share one scope, so a batch lands entirely or not at
// all. An empty batch issues no query.
func bulkUpsert[T any, K comparable](ctx context.Context, scope *Scope, table upsertTable, items []T, key func(T) K, values func(T) []any) error {
	if len(items) == 0 {
		return nil
	}
	items = dedupeLast(items, key)

	return scope.InTx(ctx, func(ctx context.Context) error {
		per := table.rowsPerStatement()
		for start := 0; start < len(items); start += per {
			chunk := items[start:min(start+per, len(items))]

			args := make([]any, 0, len(chunk)*len(table.columns))
			for _, item := range chunk {
				row := values(item)
				if len(row) != len(table.columns) {
					return fmt.Errorf("%s: row has %d values for %d columns", table.name, len(row), len(table.columns))
				}
				args = append(args, row...)
			}

			if _, err := scope.db.ExecContext(ctx, table.statement(len(chunk)), args...); err != nil {
				return fmt.Errorf("failed to upsert %d rows into %s: %w", len(chunk), table.name, err)
			}
		}
		return nil
	})
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw pq.StringArray) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		out[i] = id
	}
	return out, nil
}

func int64Array(ids []int64) pq.Int64Array {
	return pq.Int64Array(ids)
}
