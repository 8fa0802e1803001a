// Package chat turns free-text chat messages into one structured intent,
// performs at most one ledger mutation for it and answers with text that
// describes what actually happened.
package chat

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// IntentKind is the wire name of an intent.
type IntentKind string

const (
	KindAddExpense    IntentKind = "add_expense"
	KindAddDebt       IntentKind = "add_debt"
	KindQueryExpenses IntentKind = "query_expenses"
	KindQueryDebts    IntentKind = "query_debts"
	KindSetBudget     IntentKind = "set_budget"
	KindSetBudgetLeft IntentKind = "set_budget_left"
	KindResetToday    IntentKind = "reset_today"
	KindGeneralHelp   IntentKind = "general_help"
	KindUnclear       IntentKind = "unclear"
)

// Intent is one classified chat message. The response text starts as a draft
// and is rewritten by the dispatcher after a mutation.
type Intent interface {
	Kind() IntentKind
	Text() string
	SetText(string)
}

// draft carries the response text shared by every variant.
type draft struct {
	ResponseText string
}

func (d *draft) Text() string     { return d.ResponseText }
func (d *draft) SetText(s string) { d.ResponseText = s }

type AddExpense struct {
	draft
	Amount      decimal.Decimal
	Category    ledger.Category
	Description string
	Date        DateSpec
}

func (*AddExpense) Kind() IntentKind { return KindAddExpense }

type AddDebt struct {
	draft
	FriendName  string
	Amount      decimal.Decimal
	Direction   ledger.Direction
	Description string
}

func (*AddDebt) Kind() IntentKind { return KindAddDebt }

// ExpenseQuery narrows a spending question.
type ExpenseQuery string

const (
	ExpenseQueryTotal    ExpenseQuery = "total"
	ExpenseQueryToday    ExpenseQuery = "today"
	ExpenseQueryMonth    ExpenseQuery = "month"
	ExpenseQueryCategory ExpenseQuery = "category"
	ExpenseQueryRecent   ExpenseQuery = "recent"
)

type QueryExpenses struct {
	draft
	QueryType      ExpenseQuery
	CategoryFilter ledger.Category // empty when none
}

func (*QueryExpenses) Kind() IntentKind { return KindQueryExpenses }

// DebtQuery narrows a debt question.
type DebtQuery string

const (
	DebtQueryTotalOwed  DebtQuery = "total_owed"
	DebtQueryTotalOwing DebtQuery = "total_owing"
	DebtQueryNetBalance DebtQuery = "net_balance"
	DebtQueryList       DebtQuery = "list"
)

type QueryDebts struct {
	draft
	QueryType DebtQuery
}

func (*QueryDebts) Kind() IntentKind { return KindQueryDebts }

type SetBudget struct {
	draft
	Amount decimal.Decimal
}

func (*SetBudget) Kind() IntentKind { return KindSetBudget }

// SetBudgetLeft asks for a budget such that exactly TargetRemaining is left this month.
type SetBudgetLeft struct {
	draft
	TargetRemaining decimal.Decimal
}

func (*SetBudgetLeft) Kind() IntentKind { return KindSetBudgetLeft }

type ResetToday struct{ draft }

func (*ResetToday) Kind() IntentKind { return KindResetToday }

type GeneralHelp struct{ draft }

func (*GeneralHelp) Kind() IntentKind { return KindGeneralHelp }

type Unclear struct{ draft }

func (*Unclear) Kind() IntentKind { return KindUnclear }

func newUnclear(text string) *Unclear {
	return &Unclear{draft{ResponseText: text}}
}

func newGeneralHelp(text string) *GeneralHelp {
	return &GeneralHelp{draft{ResponseText: text}}
}
