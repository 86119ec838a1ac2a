package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrEntityNotFound indicates the target customer/vendor/company account does not exist.
	ErrEntityNotFound = errors.New("ledger: entity not found")
	// ErrInvalidAmount indicates a non-positive adjustment amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrTransactionNotFound indicates no audit row exists for a correction target.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
)

// Store is the persistence port the ledger operates over. Within a payment or
// reconciliation it is backed by the surrounding database transaction so that
// balance update and audit row land atomically.
type Store interface {
	GetEntityForUpdate(ctx context.Context, kind EntityKind, id int64) (Entity, error)
	UpdateEntityBalance(ctx context.Context, kind EntityKind, id int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn Transaction) (int64, error)
	// FindTransactionByInvoice returns the invoice's original DEBIT booking
	// row. Payment credits carry the invoice number too and must never be
	// correction targets.
	FindTransactionByInvoice(ctx context.Context, kind EntityKind, entityID int64, invoiceNumber string) (Transaction, error)
	UpdateTransaction(ctx context.Context, txn Transaction) error
}

// Ledger applies balance adjustments through a Store. It is not idempotent:
// callers retrying a logical event must dedupe upstream by reference.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// signFor returns +1 when the direction increases the entity's balance.
// Customers and vendors grow on DEBIT (they owe more / we owe more); the
// company's own accounts grow on CREDIT (money received). The company rule is
// deliberately the inverse and must stay a per-kind switch.
func signFor(kind EntityKind, dir Direction) decimal.Decimal {
	one := decimal.NewFromInt(1)
	minusOne := decimal.NewFromInt(-1)
	switch kind {
	case KindCompany:
		if dir == Credit {
			return one
		}
		return minusOne
	default:
		if dir == Debit {
			return one
		}
		return minusOne
	}
}

// Replay folds a transaction log from a zero balance. An intact ledger
// satisfies Replay(kind, log) == currentBalance for every entity.
func Replay(kind EntityKind, txns []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, txn := range txns {
		balance = balance.Add(txn.Amount.Mul(signFor(kind, txn.Direction)))
	}
	return balance
}

// Append adjusts the entity balance and records the audit row.
func (l *Ledger) Append(ctx context.Context, in AppendInput) (AppendResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return AppendResult{}, ErrInvalidAmount
	}
	entity, err := l.store.GetEntityForUpdate(ctx, in.Kind, in.EntityID)
	if err != nil {
		return AppendResult{}, err
	}
	previous := entity.CurrentBalance
	next := previous.Add(in.Amount.Mul(signFor(in.Kind, in.Direction)))

	if err := l.store.UpdateEntityBalance(ctx, in.Kind, in.EntityID, next); err != nil {
		return AppendResult{}, err
	}
	if _, err := l.store.InsertTransaction(ctx, Transaction{
		EntityKind:      in.Kind,
		EntityID:        in.EntityID,
		Direction:       in.Direction,
		Amount:          in.Amount,
		Description:     in.Description,
		Reference:       in.Reference,
		InvoiceNumber:   in.InvoiceNumber,
		PreviousBalance: previous,
		NewBalance:      next,
	}); err != nil {
		return AppendResult{}, err
	}
	return AppendResult{PreviousBalance: previous, NewBalance: next}, nil
}

// Correct rewrites the audit row originally booked for an invoice after the
// invoice amount changed, and moves the entity balance by the delta. This is
// the one sanctioned departure from append-only: repeated edits of the same
// invoice keep a single correction row instead of an unbounded trail.
//
// Returns ErrTransactionNotFound when the invoice never had a row booked; the
// caller decides whether to book one fresh.
func (l *Ledger) Correct(ctx context.Context, in CorrectInput) (AppendResult, error) {
	if in.NewAmount.LessThanOrEqual(decimal.Zero) {
		return AppendResult{}, ErrInvalidAmount
	}
	txn, err := l.store.FindTransactionByInvoice(ctx, in.Kind, in.EntityID, in.InvoiceNumber)
	if err != nil {
		return AppendResult{}, err
	}
	entity, err := l.store.GetEntityForUpdate(ctx, in.Kind, in.EntityID)
	if err != nil {
		return AppendResult{}, err
	}

	sign := signFor(in.Kind, txn.Direction)
	delta := in.NewAmount.Sub(in.OldAmount)
	balanceBefore := entity.CurrentBalance
	balanceAfter := balanceBefore.Add(delta.Mul(sign))

	// Recompute the row so its own invariant still holds against the
	// entity's post-edit balance: newBalance == previousBalance +/- amount.
	txn.PreviousBalance = balanceBefore.Sub(in.OldAmount.Mul(sign))
	txn.Amount = in.NewAmount
	txn.NewBalance = txn.PreviousBalance.Add(in.NewAmount.Mul(sign))
	if in.Description != "" {
		txn.Description = in.Description
	}

	if err := l.store.UpdateEntityBalance(ctx, in.Kind, in.EntityID, balanceAfter); err != nil {
		return AppendResult{}, err
	}
	if err := l.store.UpdateTransaction(ctx, txn); err != nil {
		return AppendResult{}, err
	}
	return AppendResult{PreviousBalance: balanceBefore, NewBalance: balanceAfter}, nil
}
