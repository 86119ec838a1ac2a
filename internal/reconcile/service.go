package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/observability"
)

// Repository opens the atomic unit a reconciliation runs in.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the transaction-scoped persistence surface of an invoice
// edit: ledger, journal, and invoice writes share one database transaction.
type TxRepository interface {
	ledger.Store
	journals.Store

	// UpdateInvoiceBilling persists the edited amount and payer on the
	// invoice row itself, so the row and its ledger effect land together.
	UpdateInvoiceBilling(ctx context.Context, invoiceID int64, amount decimal.Decimal, customerID, vendorID *int64) error
}

// Service corrects ledger and journal state after an invoice's amount or
// payer changed outside the payment flow.
type Service struct {
	repo    Repository
	builder *journals.Builder
	policy  AdjustmentPolicy
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewService(repo Repository, builder *journals.Builder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, builder: builder, policy: DebitAdjustment, logger: logger, metrics: metrics}
}

// WithPolicy selects how amount decreases are booked.
func (s *Service) WithPolicy(policy AdjustmentPolicy) {
	if policy == DebitAdjustment || policy == CreditReversal {
		s.policy = policy
	}
}

// Reconcile applies the ledger effect of an invoice edit. A reassignment
// reverses the full old amount off the old payer and books the full new
// amount on the new payer; an amount-only edit moves the unchanged payer by
// the delta. Runs in a single storage transaction.
func (s *Service) Reconcile(ctx context.Context, in Input) (Result, error) {
	if in.NewAmount.LessThanOrEqual(decimal.Zero) {
		return Result{}, ErrInvalidAmount
	}
	oldKind, oldID, err := payerOf(in.OldCustomerID, in.OldVendorID)
	if err != nil {
		return Result{}, err
	}
	newKind, newID, err := payerOf(in.NewCustomerID, in.NewVendorID)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		OldPayerKind: oldKind, OldPayerID: oldID,
		NewPayerKind: newKind, NewPayerID: newID,
	}
	if in.OldAmount.Equal(in.NewAmount) && samePayer(oldKind, oldID, newKind, newID) {
		result.Change = ChangeNone
		return result, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		led := ledger.New(tx)
		if samePayer(oldKind, oldID, newKind, newID) {
			if err := s.adjustAmount(ctx, tx, led, in, &result); err != nil {
				return err
			}
		} else if err := s.reassign(ctx, tx, led, in, &result); err != nil {
			return err
		}
		return tx.UpdateInvoiceBilling(ctx, in.InvoiceID, in.NewAmount, in.NewCustomerID, in.NewVendorID)
	})
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("invoice reconciled",
		slog.String("invoice", in.InvoiceNumber),
		slog.String("change", string(result.Change)),
		slog.String("old_amount", in.OldAmount.StringFixed(2)),
		slog.String("new_amount", in.NewAmount.StringFixed(2)),
	)
	return result, nil
}

// reassign reverses the old booking and books fresh: two ledger transactions,
// two journal entries.
func (s *Service) reassign(ctx context.Context, tx TxRepository, led *ledger.Ledger, in Input, result *Result) error {
	if in.OldAmount.IsPositive() {
		if _, err := led.Append(ctx, ledger.AppendInput{
			Kind:          result.OldPayerKind,
			EntityID:      result.OldPayerID,
			Direction:     ledger.Credit,
			Amount:        in.OldAmount,
			Description:   fmt.Sprintf("Invoice %s reassigned away", in.InvoiceNumber),
			Reference:     in.InvoiceNumber,
			InvoiceNumber: in.InvoiceNumber,
		}); err != nil {
			return err
		}
		s.postJournal(ctx, tx, creditKindFor(result.OldPayerKind), in.OldAmount,
			fmt.Sprintf("Reversal of invoice %s", in.InvoiceNumber), in.InvoiceNumber)
	}

	if _, err := led.Append(ctx, ledger.AppendInput{
		Kind:          result.NewPayerKind,
		EntityID:      result.NewPayerID,
		Direction:     ledger.Debit,
		Amount:        in.NewAmount,
		Description:   fmt.Sprintf("Invoice %s reassigned here", in.InvoiceNumber),
		Reference:     in.InvoiceNumber,
		InvoiceNumber: in.InvoiceNumber,
	}); err != nil {
		return err
	}
	s.postJournal(ctx, tx, debitKindFor(result.NewPayerKind), in.NewAmount,
		fmt.Sprintf("Invoice %s booked", in.InvoiceNumber), in.InvoiceNumber)

	result.Change = ChangeReassignment
	return nil
}

// adjustAmount moves the unchanged payer by the delta. The default policy
// rewrites the original debit row in place; CreditReversal books decreases as
// an appended credit instead.
func (s *Service) adjustAmount(ctx context.Context, tx TxRepository, led *ledger.Ledger, in Input, result *Result) error {
	delta := in.NewAmount.Sub(in.OldAmount)

	if s.policy == CreditReversal && delta.IsNegative() {
		decrease := delta.Abs()
		if _, err := led.Append(ctx, ledger.AppendInput{
			Kind:          result.NewPayerKind,
			EntityID:      result.NewPayerID,
			Direction:     ledger.Credit,
			Amount:        decrease,
			Description:   fmt.Sprintf("Invoice %s reduced by %s", in.InvoiceNumber, decrease.StringFixed(2)),
			Reference:     in.InvoiceNumber,
			InvoiceNumber: in.InvoiceNumber,
		}); err != nil {
			return err
		}
		s.postJournal(ctx, tx, creditKindFor(result.NewPayerKind), decrease,
			fmt.Sprintf("Invoice %s amount reduced", in.InvoiceNumber), in.InvoiceNumber)
		result.Change = ChangeAmount
		return nil
	}

	_, err := led.Correct(ctx, ledger.CorrectInput{
		Kind:          result.NewPayerKind,
		EntityID:      result.NewPayerID,
		InvoiceNumber: in.InvoiceNumber,
		OldAmount:     in.OldAmount,
		NewAmount:     in.NewAmount,
		Description:   fmt.Sprintf("Invoice %s corrected to %s", in.InvoiceNumber, in.NewAmount.StringFixed(2)),
	})
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound):
		// The invoice was edited before any booking existed for it: book
		// the full new amount fresh.
		if _, err := led.Append(ctx, ledger.AppendInput{
			Kind:          result.NewPayerKind,
			EntityID:      result.NewPayerID,
			Direction:     ledger.Debit,
			Amount:        in.NewAmount,
			Description:   fmt.Sprintf("Invoice %s booked", in.InvoiceNumber),
			Reference:     in.InvoiceNumber,
			InvoiceNumber: in.InvoiceNumber,
		}); err != nil {
			return err
		}
		s.postJournal(ctx, tx, debitKindFor(result.NewPayerKind), in.NewAmount,
			fmt.Sprintf("Invoice %s booked", in.InvoiceNumber), in.InvoiceNumber)
		result.Change = ChangeFreshBooking
		return nil
	case err != nil:
		return err
	}

	// An invoice recognized against a payer is a debit, whatever its size.
	s.postJournal(ctx, tx, debitKindFor(result.NewPayerKind), delta.Abs(),
		fmt.Sprintf("Invoice %s amount corrected", in.InvoiceNumber), in.InvoiceNumber)
	result.Change = ChangeAmount
	return nil
}

func (s *Service) postJournal(ctx context.Context, store journals.Store, kind journals.PostingKind, amount decimal.Decimal, description, reference string) {
	if s.builder == nil || !amount.IsPositive() {
		return
	}
	if _, err := s.builder.Post(ctx, store, journals.PostingInput{
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Reference:   reference,
	}); err != nil {
		if errors.Is(err, journals.ErrMissingAccount) {
			s.metrics.JournalPostSkipped()
			s.logger.Warn("journal post skipped",
				slog.String("kind", string(kind)),
				slog.String("reference", reference),
				slog.Any("error", err),
			)
			return
		}
		s.logger.Error("journal post failed",
			slog.String("kind", string(kind)),
			slog.String("reference", reference),
			slog.Any("error", err),
		)
	}
}

func debitKindFor(kind ledger.EntityKind) journals.PostingKind {
	if kind == ledger.KindVendor {
		return journals.VendorDebit
	}
	return journals.CustomerDebit
}

func creditKindFor(kind ledger.EntityKind) journals.PostingKind {
	if kind == ledger.KindVendor {
		return journals.VendorCredit
	}
	return journals.CustomerCredit
}
