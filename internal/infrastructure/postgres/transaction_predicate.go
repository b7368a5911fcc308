package postgres

import (
	"fmt"
	"strings"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/tag"
	"finmirror/internal/domain/transaction"
)

// The expressions below assume the transactions table is aliased as t.

var shapeSQL = map[transaction.Shape]string{
	transaction.ShapeIncome:  "(t.outcome = 0 AND t.income > 0)",
	transaction.ShapeExpense: "(t.income = 0 AND t.outcome > 0)",
	transaction.ShapeBoth:    "(t.income > 0 AND t.outcome > 0)",
	transaction.ShapeOther:   "TRUE",
}

var firstTagDirectionSQL = fmt.Sprintf(`COALESCE((SELECT CASE
		WHEN tg.show_income AND tg.show_outcome THEN '%s'
		WHEN tg.show_income THEN '%s'
		WHEN tg.show_outcome THEN '%s'
		ELSE '%s' END
	FROM tags tg WHERE tg.id = t.tags[1]), '%s')`,
	tag.DirectionBoth, tag.DirectionIncome, tag.DirectionExpense, tag.DirectionNone, tag.DirectionNone)

func debtSQL(column string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM accounts a WHERE a.id = t.%s AND a.type = '%s')", column, account.TypeDebt)
}

// compileTypeCase turns the ordered classification rules into one CASE
// expression, so filtering by type in SQL and classifying in Go cannot
// disagree.
func compileTypeCase(rules []transaction.Rule) string {
	var b strings.Builder
	b.WriteString("(CASE")
	for _, r := range rules {
		conds := []string{shapeSQL[r.Shape]}
		if r.Direction != "" {
			conds = append(conds, fmt.Sprintf("%s = '%s'", firstTagDirectionSQL, r.Direction))
		}
		switch r.Debt {
		case transaction.DebtIncomeAccount:
			conds = append(conds, debtSQL("income_account"))
		case transaction.DebtOutcomeAccount:
			conds = append(conds, debtSQL("outcome_account"))
		}
		fmt.Fprintf(&b, " WHEN %s THEN '%s'", strings.Join(conds, " AND "), r.Type)
	}
	fmt.Fprintf(&b, " ELSE '%s' END)", transaction.TypeTransfer)
	return b.String()
}

var transactionTypeSQL = compileTypeCase(transaction.Rules())
