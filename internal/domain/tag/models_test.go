package tag

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"finmirror/internal/shared/apperrors"
)

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		name        string
		showIncome  bool
		showOutcome bool
		want        Direction
	}{
		{"both", true, true, DirectionBoth},
		{"income only", true, false, DirectionIncome},
		{"outcome only", false, true, DirectionExpense},
		{"neither", false, false, DirectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DirectionOf(tt.showIncome, tt.showOutcome); got != tt.want {
				t.Errorf("DirectionOf(%v, %v) = %q, want %q", tt.showIncome, tt.showOutcome, got, tt.want)
			}
		})
	}
}

func TestNilTagDirection(t *testing.T) {
	var tg *Tag
	if got := tg.Direction(); got != DirectionNone {
		t.Errorf("nil tag direction = %q, want %q", got, DirectionNone)
	}
}

func TestDirectionAllows(t *testing.T) {
	tests := []struct {
		dir         Direction
		wantIncome  bool
		wantExpense bool
	}{
		{DirectionBoth, true, true},
		{DirectionIncome, true, false},
		{DirectionExpense, false, true},
		{DirectionNone, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			if got := tt.dir.AllowsIncome(); got != tt.wantIncome {
				t.Errorf("AllowsIncome() = %v, want %v", got, tt.wantIncome)
			}
			if got := tt.dir.AllowsExpense(); got != tt.wantExpense {
				t.Errorf("AllowsExpense() = %v, want %v", got, tt.wantExpense)
			}
		})
	}
}

func newTag(title string, parent *Tag) *Tag {
	t := &Tag{ID: uuid.New(), Title: title}
	if parent != nil {
		t.Parent = uuid.NullUUID{UUID: parent.ID, Valid: true}
	}
	return t
}

func TestAncestorsAndPath(t *testing.T) {
	food := newTag("Food", nil)
	groceries := newTag("Groceries", food)
	fruit := newTag("Fruit", groceries)
	byID := Index([]*Tag{food, groceries, fruit})

	chain := Ancestors(byID, fruit.ID)
	if len(chain) != 2 || chain[0] != groceries || chain[1] != food {
		t.Fatalf("Ancestors() = %v, want [Groceries Food]", chain)
	}

	if got := Path(byID, fruit.ID); got != "Food / Groceries / Fruit" {
		t.Errorf("Path() = %q", got)
	}
	if got := Path(byID, food.ID); got != "Food" {
		t.Errorf("Path(root) = %q", got)
	}
	if got := Path(byID, uuid.New()); got != "" {
		t.Errorf("Path(unknown) = %q, want empty", got)
	}
}

func TestAncestorsStopsOnCycle(t *testing.T) {
	a := &Tag{ID: uuid.New(), Title: "A"}
	b := &Tag{ID: uuid.New(), Title: "B"}
	a.Parent = uuid.NullUUID{UUID: b.ID, Valid: true}
	b.Parent = uuid.NullUUID{UUID: a.ID, Valid: true}
	byID := Index([]*Tag{a, b})

	chain := Ancestors(byID, a.ID)
	if len(chain) != 1 || chain[0] != b {
		t.Errorf("Ancestors() on cycle = %v, want [B]", chain)
	}
}

func TestAncestorsSelfParent(t *testing.T) {
	a := &Tag{ID: uuid.New(), Title: "A"}
	a.Parent = uuid.NullUUID{UUID: a.ID, Valid: true}

	if chain := Ancestors(Index([]*Tag{a}), a.ID); len(chain) != 0 {
		t.Errorf("Ancestors() on self-parent = %v, want empty", chain)
	}
}

func TestAncestorsDepthLimit(t *testing.T) {
	var tags []*Tag
	var prev *Tag
	for i := 0; i < maxAncestorDepth+10; i++ {
		cur := newTag("t", prev)
		tags = append(tags, cur)
		prev = cur
	}

	chain := Ancestors(Index(tags), prev.ID)
	if len(chain) != maxAncestorDepth {
		t.Errorf("len(Ancestors()) = %d, want %d", len(chain), maxAncestorDepth)
	}
}

func TestErrTagNotFoundKind(t *testing.T) {
	if !errors.Is(ErrTagNotFound, apperrors.ErrNotFound) {
		t.Error("ErrTagNotFound is not a NotFound error")
	}
}
