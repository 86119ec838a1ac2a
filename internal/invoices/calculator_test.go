package invoices

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubSummer struct {
	sums map[string]decimal.Decimal
}

func (s stubSummer) SumPaymentsByInvoice(ctx context.Context, invoiceNumber string) (decimal.Decimal, error) {
	return s.sums[invoiceNumber], nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateRoundTrip(t *testing.T) {
	ctx := context.Background()
	sums := stubSummer{sums: map[string]decimal.Decimal{}}
	calc := NewCalculator(sums)

	// $500 invoice, no payments yet.
	summary, err := calc.Calculate(ctx, "INV-1", dec("500"), StatusPending)
	require.NoError(t, err)
	require.Equal(t, StatusPending, summary.Status)
	require.True(t, summary.RemainingAmount.Equal(dec("500")))

	// $200 paid.
	sums.sums["INV-1"] = dec("200")
	summary, err = calc.Calculate(ctx, "INV-1", dec("500"), StatusPending)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, summary.Status)
	require.True(t, summary.TotalPaid.Equal(dec("200")))
	require.True(t, summary.RemainingAmount.Equal(dec("300")))

	// $300 more settles it.
	sums.sums["INV-1"] = dec("500")
	summary, err = calc.Calculate(ctx, "INV-1", dec("500"), StatusPartial)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, summary.Status)
	require.True(t, summary.TotalPaid.Equal(dec("500")))
	require.True(t, summary.RemainingAmount.IsZero())
}

func TestCalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	calc := NewCalculator(stubSummer{sums: map[string]decimal.Decimal{"INV-2": dec("123.45")}})

	first, err := calc.Calculate(ctx, "INV-2", dec("200"), StatusPending)
	require.NoError(t, err)
	second, err := calc.Calculate(ctx, "INV-2", dec("200"), StatusPending)
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.True(t, first.TotalPaid.Equal(second.TotalPaid))
	require.True(t, first.RemainingAmount.Equal(second.RemainingAmount))
}

func TestCalculateOverpaymentClampsRemaining(t *testing.T) {
	ctx := context.Background()
	calc := NewCalculator(stubSummer{sums: map[string]decimal.Decimal{"INV-3": dec("150")}})

	summary, err := calc.Calculate(ctx, "INV-3", dec("100"), StatusPartial)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, summary.Status)
	require.True(t, summary.RemainingAmount.IsZero())
	require.True(t, summary.TotalPaid.Equal(dec("150")))
}

func TestCalculateStickyStatuses(t *testing.T) {
	ctx := context.Background()
	sums := stubSummer{sums: map[string]decimal.Decimal{}}
	calc := NewCalculator(sums)

	// Overdue with no payments stays Overdue, never downgraded to Pending.
	summary, err := calc.Calculate(ctx, "INV-4", dec("100"), StatusOverdue)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, summary.Status)

	// Overdue with a partial payment is still Overdue.
	sums.sums["INV-4"] = dec("40")
	summary, err = calc.Calculate(ctx, "INV-4", dec("100"), StatusOverdue)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, summary.Status)
	require.True(t, summary.RemainingAmount.Equal(dec("60")))

	// Full settlement clears Overdue.
	sums.sums["INV-4"] = dec("100")
	summary, err = calc.Calculate(ctx, "INV-4", dec("100"), StatusOverdue)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, summary.Status)

	// Cancelled is sticky regardless of payments.
	sums.sums["INV-5"] = dec("100")
	summary, err = calc.Calculate(ctx, "INV-5", dec("100"), StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, summary.Status)
}

func TestCalculateMinorUnitPrecision(t *testing.T) {
	ctx := context.Background()
	// Sums that would drift under binary floats stay exact.
	calc := NewCalculator(stubSummer{sums: map[string]decimal.Decimal{
		"INV-6": dec("0.10").Add(dec("0.20")).Add(dec("0.30")),
	}})
	summary, err := calc.Calculate(ctx, "INV-6", dec("0.60"), StatusPending)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, summary.Status)
	require.True(t, summary.RemainingAmount.IsZero())
}

func TestPayerResolution(t *testing.T) {
	cust := int64(10)
	vend := int64(20)

	_, _, err := Invoice{}.Payer()
	require.ErrorIs(t, err, ErrUnlinked)

	kind, id, err := Invoice{CustomerID: &cust}.Payer()
	require.NoError(t, err)
	require.EqualValues(t, "CUSTOMER", kind)
	require.Equal(t, cust, id)

	kind, id, err = Invoice{VendorID: &vend}.Payer()
	require.NoError(t, err)
	require.EqualValues(t, "VENDOR", kind)
	require.Equal(t, vend, id)

	_, _, err = Invoice{CustomerID: &cust, VendorID: &vend}.Payer()
	require.ErrorIs(t, err, ErrUnlinked)
}
