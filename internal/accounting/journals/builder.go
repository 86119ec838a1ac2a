package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/accounting/accounts"
)

var (
	// ErrMissingAccount indicates one side's account is absent from the chart.
	// Callers treat journal posting as best-effort: they log and proceed.
	ErrMissingAccount = accounts.ErrMissingAccount
	// ErrInvalidAmount indicates a non-positive posting amount.
	ErrInvalidAmount = errors.New("journals: amount must be positive")
)

// Store is the persistence port for posting entries. Number allocation must
// be serialized by the implementation so concurrent postings never reuse an
// entry number.
type Store interface {
	NextEntrySequence(ctx context.Context) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []Line) error
}

// Builder constructs balanced two-line journal entries from the resolved
// account set.
type Builder struct {
	set accounts.Set
	now func() time.Time
}

func NewBuilder(set accounts.Set) *Builder {
	return &Builder{set: set, now: time.Now}
}

func (b *Builder) WithNow(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// accountsFor maps a posting kind to its fixed (debit, credit) account pair.
func (b *Builder) accountsFor(kind PostingKind) (int64, int64, error) {
	var debit, credit int64
	switch kind {
	case CustomerDebit:
		debit, credit = b.set.Receivable, b.set.Revenue
	case CustomerCredit:
		debit, credit = b.set.Cash, b.set.Receivable
	case VendorDebit:
		debit, credit = b.set.Expense, b.set.Payable
	case VendorCredit:
		debit, credit = b.set.Payable, b.set.Cash
	case CompanyDebit:
		debit, credit = b.set.Cash, b.set.Revenue
	case CompanyCredit:
		debit, credit = b.set.Expense, b.set.Cash
	default:
		return 0, 0, fmt.Errorf("journals: unknown posting kind %q", kind)
	}
	if debit == 0 || credit == 0 {
		return 0, 0, fmt.Errorf("%w: posting kind %s", ErrMissingAccount, kind)
	}
	return debit, credit, nil
}

// Post builds and persists one balanced entry. Must run inside the same
// storage transaction as the ledger movement it documents.
func (b *Builder) Post(ctx context.Context, store Store, in PostingInput) (JournalEntry, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return JournalEntry{}, ErrInvalidAmount
	}
	debitAccount, creditAccount, err := b.accountsFor(in.Kind)
	if err != nil {
		return JournalEntry{}, err
	}

	seq, err := store.NextEntrySequence(ctx)
	if err != nil {
		return JournalEntry{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = b.now()
	}

	entry := JournalEntry{
		EntryNumber: fmt.Sprintf("JE-%04d", seq),
		Description: in.Description,
		Reference:   in.Reference,
		TotalDebit:  in.Amount,
		TotalCredit: in.Amount,
		IsPosted:    true,
		EntryDate:   date,
	}
	id, err := store.InsertEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.ID = id
	entry.Lines = []Line{
		{JournalEntryID: id, AccountID: debitAccount, Debit: in.Amount},
		{JournalEntryID: id, AccountID: creditAccount, Credit: in.Amount},
	}
	if err := store.InsertLines(ctx, id, entry.Lines); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}
