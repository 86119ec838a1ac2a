package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
)

// AllocatorStore is the slice of the payment transaction the allocator needs.
// ListOutstandingByPayer must return candidates oldest-first by invoice date,
// ties broken by lower invoice number; paying down the oldest debt first is
// business policy, not an implementation detail.
type AllocatorStore interface {
	ListOutstandingByPayer(ctx context.Context, kind ledger.EntityKind, payerID int64, excludeInvoice string) ([]invoices.Invoice, error)
	SumPaymentsByInvoice(ctx context.Context, invoiceNumber string) (decimal.Decimal, error)
	CreatePayment(ctx context.Context, input CreatePaymentInput) (Payment, error)
	UpdateInvoiceStatus(ctx context.Context, invoiceNumber string, status invoices.Status) error
}

// AllocateExcess distributes an overpayment across the payer's other
// outstanding invoices. It creates allocation payment rows and recomputes
// invoice statuses but never touches ledger balances: the processor books the
// whole payment as one ledger transaction.
func AllocateExcess(ctx context.Context, store AllocatorStore, in AllocationInput) (AllocationResult, error) {
	if in.PayerID == 0 || (in.PayerKind != ledger.KindCustomer && in.PayerKind != ledger.KindVendor) {
		return AllocationResult{}, ErrInvalidPayer
	}
	result := AllocationResult{Unallocated: in.Excess}
	if in.Excess.LessThanOrEqual(decimal.Zero) {
		return result, nil
	}

	candidates, err := store.ListOutstandingByPayer(ctx, in.PayerKind, in.PayerID, in.ExcludeInvoice)
	if err != nil {
		return AllocationResult{}, err
	}

	calc := invoices.NewCalculator(store)
	excess := in.Excess
	for _, candidate := range candidates {
		if excess.LessThanOrEqual(decimal.Zero) {
			break
		}
		summary, err := calc.Calculate(ctx, candidate.Number, candidate.TotalAmount, candidate.Status)
		if err != nil {
			return AllocationResult{}, err
		}
		if summary.RemainingAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		applied := decimal.Min(excess, summary.RemainingAmount)
		if _, err := store.CreatePayment(ctx, CreatePaymentInput{
			Type:          in.Type,
			Amount:        applied,
			Mode:          in.Mode,
			Reference:     in.Reference + AllocationSuffix,
			InvoiceNumber: candidate.Number,
			FromParty:     in.FromParty,
			ToParty:       in.ToParty,
			Description:   fmt.Sprintf("Overpayment on %s applied to %s", in.ExcludeInvoice, candidate.Number),
			PaidAt:        in.PaidAt,
		}); err != nil {
			return AllocationResult{}, err
		}

		after, err := calc.Calculate(ctx, candidate.Number, candidate.TotalAmount, candidate.Status)
		if err != nil {
			return AllocationResult{}, err
		}
		if err := store.UpdateInvoiceStatus(ctx, candidate.Number, after.Status); err != nil {
			return AllocationResult{}, err
		}

		excess = excess.Sub(applied)
		result.Allocations = append(result.Allocations, Allocation{
			InvoiceNumber: candidate.Number,
			AmountApplied: applied,
			NewStatus:     after.Status,
		})
	}
	result.Unallocated = excess
	return result, nil
}
