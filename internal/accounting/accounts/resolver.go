package accounts

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAccount indicates a required chart-of-accounts row is absent.
var ErrMissingAccount = errors.New("accounts: required account missing")

// The engine books against a fixed set of named accounts. Lookups are by
// name and category so a renamed code cannot silently redirect postings.
const (
	NameCash       = "Cash"
	NameReceivable = "Accounts Receivable"
	NamePayable    = "Accounts Payable"
	NameRevenue    = "Revenue"
	NameExpense    = "Expense"
)

// Set holds the resolved account ids the journal builder posts against.
// A zero id means the account was absent from the chart.
type Set struct {
	Cash       int64
	Receivable int64
	Payable    int64
	Revenue    int64
	Expense    int64
}

// Resolve loads the chart once and picks out the required accounts.
func Resolve(ctx context.Context, repo Repository) (Set, error) {
	all, err := repo.List(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("accounts: load chart: %w", err)
	}
	return BuildSet(all), nil
}

// BuildSet maps chart rows onto the named slots.
func BuildSet(all []Account) Set {
	var set Set
	for _, a := range all {
		switch {
		case a.Name == NameCash && a.Category == CategoryAsset:
			set.Cash = a.ID
		case a.Name == NameReceivable && a.Category == CategoryAsset:
			set.Receivable = a.ID
		case a.Name == NamePayable && a.Category == CategoryLiability:
			set.Payable = a.ID
		case a.Name == NameRevenue && a.Category == CategoryRevenue:
			set.Revenue = a.ID
		case a.Name == NameExpense && a.Category == CategoryExpense:
			set.Expense = a.ID
		}
	}
	return set
}

// Validate reports every missing required account. Called at startup so a
// gap in the chart refuses payment processing up front instead of degrading
// one journal entry at a time.
func (s Set) Validate() error {
	missing := func(name string, id int64) error {
		if id == 0 {
			return fmt.Errorf("%w: %s", ErrMissingAccount, name)
		}
		return nil
	}
	for _, check := range []error{
		missing(NameCash, s.Cash),
		missing(NameReceivable, s.Receivable),
		missing(NamePayable, s.Payable),
		missing(NameRevenue, s.Revenue),
		missing(NameExpense, s.Expense),
	} {
		if check != nil {
			return check
		}
	}
	return nil
}
