package transaction

import (
	"github.com/shopspring/decimal"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/tag"
)

// Type is the derived classification of a transaction. It is never stored.
type Type string

const (
	TypeIncome        Type = "Income"
	TypeExpense       Type = "Expense"
	TypeTransfer      Type = "Transfer"
	TypeDebtRepaid    Type = "DebtRepaid"
	TypeLentOut       Type = "LentOut"
	TypeReturnIncome  Type = "ReturnIncome"
	TypeReturnExpense Type = "ReturnExpense"
)

var allTypes = []Type{
	TypeIncome, TypeExpense, TypeTransfer, TypeDebtRepaid,
	TypeLentOut, TypeReturnIncome, TypeReturnExpense,
}

// Types lists every classification value.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

func (t Type) Valid() bool {
	for _, v := range allTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Shape is the sign pattern of the two leg amounts.
type Shape int

const (
	// ShapeIncome: income > 0, outcome == 0.
	ShapeIncome Shape = iota
	// ShapeExpense: income == 0, outcome > 0.
	ShapeExpense
	// ShapeBoth: income > 0, outcome > 0.
	ShapeBoth
	// ShapeOther: anything else, in practice both zero.
	ShapeOther
)

func ShapeOf(income, outcome decimal.Decimal) Shape {
	switch {
	case outcome.IsZero() && income.IsPositive():
		return ShapeIncome
	case income.IsZero() && outcome.IsPositive():
		return ShapeExpense
	case income.IsPositive() && outcome.IsPositive():
		return ShapeBoth
	default:
		return ShapeOther
	}
}

// DebtSide names which leg's account must be a debt account for a rule.
type DebtSide int

const (
	DebtAny DebtSide = iota
	DebtIncomeAccount
	DebtOutcomeAccount
)

// Rule is one row of the classification table. Zero-valued Direction and
// Debt match anything.
type Rule struct {
	Shape     Shape
	Direction tag.Direction
	Debt      DebtSide
	Type      Type
}

// rules is evaluated top to bottom, first match wins. The SQL predicate in
// the postgres package is compiled from this same table.
var rules = []Rule{
	{Shape: ShapeIncome, Direction: tag.DirectionExpense, Type: TypeReturnIncome},
	{Shape: ShapeIncome, Type: TypeIncome},
	{Shape: ShapeExpense, Direction: tag.DirectionIncome, Type: TypeReturnExpense},
	{Shape: ShapeExpense, Type: TypeExpense},
	{Shape: ShapeBoth, Debt: DebtIncomeAccount, Type: TypeLentOut},
	{Shape: ShapeBoth, Debt: DebtOutcomeAccount, Type: TypeDebtRepaid},
	{Shape: ShapeBoth, Type: TypeTransfer},
	{Shape: ShapeOther, Type: TypeTransfer},
}

// Rules returns the ordered classification table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Input is everything classification depends on.
type Input struct {
	Income             decimal.Decimal
	Outcome            decimal.Decimal
	IncomeAccountType  string
	OutcomeAccountType string
	TagDirection       tag.Direction
}

func (r Rule) Matches(in Input) bool {
	if ShapeOf(in.Income, in.Outcome) != r.Shape {
		return false
	}
	if r.Direction != "" && normalizeDirection(in.TagDirection) != r.Direction {
		return false
	}
	switch r.Debt {
	case DebtIncomeAccount:
		return in.IncomeAccountType == account.TypeDebt
	case DebtOutcomeAccount:
		return in.OutcomeAccountType == account.TypeDebt
	}
	return true
}

// Classify maps a transaction's amounts, the types of both leg accounts and
// the direction of its first tag to one of the seven types.
func Classify(in Input) Type {
	for _, r := range rules {
		if r.Matches(in) {
			return r.Type
		}
	}
	return TypeTransfer
}

// ClassifyTransaction is Classify with the amounts taken from tx.
func ClassifyTransaction(tx *Transaction, incomeAccountType, outcomeAccountType string, firstTagDirection tag.Direction) Type {
	return Classify(Input{
		Income:             tx.Income,
		Outcome:            tx.Outcome,
		IncomeAccountType:  incomeAccountType,
		OutcomeAccountType: outcomeAccountType,
		TagDirection:       firstTagDirection,
	})
}

func normalizeDirection(d tag.Direction) tag.Direction {
	if d == "" {
		return tag.DirectionNone
	}
	return d
}
