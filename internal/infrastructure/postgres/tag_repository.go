package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"finmirror/internal/domain/tag"
)

var tagTable = upsertTable{
	name: "tags",
	columns: []string{
		"id", "changed", `"user"`, "title", "parent", "icon", "static_id", "picture", "color",
		"show_income", "show_outcome", "budget_income", "budget_outcome", "required", "archive",
	},
}

var tagColumns = strings.Join(tagTable.columns, ", ")

type TagRepository struct {
	db    *DB
	scope *Scope
}

func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db, scope: NewScope(db)}
}

func scanTag(s rowScanner) (*tag.Tag, error) {
	var t tag.Tag
	err := s.Scan(
		&t.ID, &t.Changed, &t.User, &t.Title, &t.Parent, &t.Icon, &t.StaticID, &t.Picture, &t.Color,
		&t.ShowIncome, &t.ShowOutcome, &t.BudgetIncome, &t.BudgetOutcome, &t.Required, &t.Archive,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*tag.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`

	t, err := scanTag(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tag.ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

func (r *TagRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*tag.Tag, error) {
	if len(ids) == 0 {
		return []*tag.Tag{}, nil
	}
	query := `SELECT ` + tagColumns + ` FROM tags WHERE id = ANY($1::uuid[])`
	return r.query(ctx, query, uuidArray(ids))
}

func (r *TagRepository) List(ctx context.Context) ([]*tag.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags ORDER BY title ASC, id ASC`
	return r.query(ctx, query)
}

func (r *TagRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*tag.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE parent = $1 ORDER BY title ASC, id ASC`
	return r.query(ctx, query, parentID)
}

func (r *TagRepository) ListChildrenMap(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT parent, array_agg(id ORDER BY title, id)
		FROM tags
		WHERE parent IS NOT NULL
		GROUP BY parent
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag children: %w", err)
	}
	defer rows.Close()

	children := map[uuid.UUID][]uuid.UUID{}
	for rows.Next() {
		var parent uuid.UUID
		var ids pq.StringArray
		if err := rows.Scan(&parent, &ids); err != nil {
			return nil, fmt.Errorf("failed to scan tag children: %w", err)
		}
		if children[parent], err = parseUUIDs(ids); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag children: %w", err)
	}
	return children, nil
}

func (r *TagRepository) Upsert(ctx context.Context, tags []*tag.Tag) error {
	return bulkUpsert(ctx, r.scope, tagTable, tags,
		func(t *tag.Tag) uuid.UUID { return t.ID },
		func(t *tag.Tag) []any {
			return []any{
				t.ID, t.Changed, t.User, t.Title, t.Parent, t.Icon, t.StaticID, t.Picture, t.Color,
				t.ShowIncome, t.ShowOutcome, t.BudgetIncome, t.BudgetOutcome, t.Required, t.Archive,
			}
		},
	)
}

func (r *TagRepository) query(ctx context.Context, query string, args ...any) ([]*tag.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []*tag.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
