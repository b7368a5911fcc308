package tag

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"finmirror/internal/shared/apperrors"
)

var ErrTagNotFound = apperrors.New(apperrors.ErrNotFound, "tag not found")

// maxAncestorDepth bounds parent-chain walks; the store does not reject cycles.
const maxAncestorDepth = 64

// Direction is how a tag is conventionally used.
type Direction string

const (
	DirectionNone    Direction = "None"
	DirectionIncome  Direction = "Income"
	DirectionExpense Direction = "Expense"
	DirectionBoth    Direction = "Both"
)

// DirectionOf combines the two independent show flags of a tag.
func DirectionOf(showIncome, showOutcome bool) Direction {
	switch {
	case showIncome && showOutcome:
		return DirectionBoth
	case showIncome:
		return DirectionIncome
	case showOutcome:
		return DirectionExpense
	default:
		return DirectionNone
	}
}

// AllowsIncome reports whether an income leg may be booked against the direction.
func (d Direction) AllowsIncome() bool {
	return d == DirectionIncome || d == DirectionBoth
}

// AllowsExpense reports whether an expense leg may be booked against the direction.
func (d Direction) AllowsExpense() bool {
	return d == DirectionExpense || d == DirectionBoth
}

type Tag struct {
	ID            uuid.UUID     `json:"id"`
	Changed       time.Time     `json:"changed"`
	User          int64         `json:"user"`
	Title         string        `json:"title"`
	Parent        uuid.NullUUID `json:"parent"`
	Icon          *string       `json:"icon"`
	StaticID      *string       `json:"staticId"`
	Picture       *string       `json:"picture"`
	Color         *int64        `json:"color"`
	ShowIncome    bool          `json:"showIncome"`
	ShowOutcome   bool          `json:"showOutcome"`
	BudgetIncome  bool          `json:"budgetIncome"`
	BudgetOutcome bool          `json:"budgetOutcome"`
	Required      *bool         `json:"required"`
	Archive       bool          `json:"archive"`
}

func (t *Tag) Direction() Direction {
	if t == nil {
		return DirectionNone
	}
	return DirectionOf(t.ShowIncome, t.ShowOutcome)
}

// WithChildren is a tag plus the ids of the tags that name it as parent.
type WithChildren struct {
	*Tag
	Children []uuid.UUID `json:"children"`
}

// Ancestors walks the parent chain of id, nearest parent first. The walk
// stops at a missing parent, a repeated id or maxAncestorDepth.
func Ancestors(byID map[uuid.UUID]*Tag, id uuid.UUID) []*Tag {
	start, ok := byID[id]
	if !ok {
		return nil
	}

	visited := map[uuid.UUID]struct{}{id: {}}
	var chain []*Tag
	cur := start
	for len(chain) < maxAncestorDepth && cur.Parent.Valid {
		parentID := cur.Parent.UUID
		if _, seen := visited[parentID]; seen {
			break
		}
		visited[parentID] = struct{}{}

		parent, ok := byID[parentID]
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

// Path renders "Root / Child / Leaf" for the tag id.
func Path(byID map[uuid.UUID]*Tag, id uuid.UUID) string {
	t, ok := byID[id]
	if !ok {
		return ""
	}

	ancestors := Ancestors(byID, id)
	parts := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		parts = append(parts, ancestors[i].Title)
	}
	parts = append(parts, t.Title)
	return strings.Join(parts, " / ")
}

// Index maps tags by id.
func Index(tags []*Tag) map[uuid.UUID]*Tag {
	byID := make(map[uuid.UUID]*Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	return byID
}
