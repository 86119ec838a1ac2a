package invoices

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentSummer sums all payment rows recorded against an invoice number,
// allocation rows included.
type PaymentSummer interface {
	SumPaymentsByInvoice(ctx context.Context, invoiceNumber string) (decimal.Decimal, error)
}

// Summary is the derived payment position of an invoice.
type Summary struct {
	Status          Status
	TotalPaid       decimal.Decimal
	RemainingAmount decimal.Decimal
}

// Calculator derives an invoice's status from its payment history. It is a
// pure function of that history: calling it twice with no new payments yields
// identical results.
type Calculator struct {
	payments PaymentSummer
}

func NewCalculator(payments PaymentSummer) *Calculator {
	return &Calculator{payments: payments}
}

// Calculate sums every payment row for the invoice and derives status.
//
// current carries the invoice's stored status so that externally-applied
// states stay sticky: CANCELLED is never touched, and OVERDUE is kept until
// payments actually settle the invoice in full. Pass the zero value for a
// plain derivation.
func (c *Calculator) Calculate(ctx context.Context, invoiceNumber string, total decimal.Decimal, current Status) (Summary, error) {
	paid, err := c.payments.SumPaymentsByInvoice(ctx, invoiceNumber)
	if err != nil {
		return Summary{}, err
	}
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	status := StatusPending
	switch {
	case paid.GreaterThanOrEqual(total):
		status = StatusPaid
	case paid.IsPositive():
		status = StatusPartial
	}

	if current == StatusCancelled {
		status = StatusCancelled
	}
	if current == StatusOverdue && status != StatusPaid {
		status = StatusOverdue
	}

	return Summary{Status: status, TotalPaid: paid, RemainingAmount: remaining}, nil
}
