package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
)

func TestAllocateExcessOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.addInvoice(invoices.Invoice{Number: "INV-OLD", TotalAmount: dec("80"), Status: invoices.StatusPartial, CustomerID: ptr(1), InvoiceDate: date("2024-01-01")})
	repo.addInvoice(invoices.Invoice{Number: "INV-NEW", TotalAmount: dec("60"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-02-01")})
	repo.payments = append(repo.payments, Payment{InvoiceNumber: "INV-OLD", Amount: dec("30")})

	res, err := AllocateExcess(ctx, repo, AllocationInput{
		PayerKind:      ledger.KindCustomer,
		PayerID:        1,
		Excess:         dec("40"),
		ExcludeInvoice: "INV-PRIMARY",
		Reference:      "PAY-X",
		Type:           TypeIncome,
	})
	require.NoError(t, err)
	// 40 is less than the oldest invoice's open 50: it all lands there and
	// the newer invoice is untouched.
	require.Len(t, res.Allocations, 1)
	require.Equal(t, "INV-OLD", res.Allocations[0].InvoiceNumber)
	require.True(t, res.Allocations[0].AmountApplied.Equal(dec("40")))
	require.Equal(t, invoices.StatusPartial, res.Allocations[0].NewStatus)
	require.True(t, res.Unallocated.IsZero())
	require.Equal(t, invoices.StatusPending, repo.invoices["INV-NEW"].Status)
}

func TestAllocateExcessCascades(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.addInvoice(invoices.Invoice{Number: "INV-1", TotalAmount: dec("30"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-01-01")})
	repo.addInvoice(invoices.Invoice{Number: "INV-2", TotalAmount: dec("25"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-01-10")})

	res, err := AllocateExcess(ctx, repo, AllocationInput{
		PayerKind: ledger.KindCustomer, PayerID: 1, Excess: dec("70"),
		ExcludeInvoice: "INV-0", Reference: "PAY-X", Type: TypeIncome,
	})
	require.NoError(t, err)
	require.Len(t, res.Allocations, 2)
	require.True(t, res.Allocations[0].AmountApplied.Equal(dec("30")))
	require.True(t, res.Allocations[1].AmountApplied.Equal(dec("25")))
	require.Equal(t, invoices.StatusPaid, res.Allocations[0].NewStatus)
	require.Equal(t, invoices.StatusPaid, res.Allocations[1].NewStatus)
	require.True(t, res.Unallocated.Equal(dec("15")))
}

func TestAllocateExcessTieBreakByNumber(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	// Same invoice date: the lower invoice number wins.
	repo.addInvoice(invoices.Invoice{Number: "INV-B", TotalAmount: dec("50"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-01-01")})
	repo.addInvoice(invoices.Invoice{Number: "INV-A", TotalAmount: dec("50"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-01-01")})

	res, err := AllocateExcess(ctx, repo, AllocationInput{
		PayerKind: ledger.KindCustomer, PayerID: 1, Excess: dec("50"),
		ExcludeInvoice: "INV-0", Reference: "PAY-X", Type: TypeIncome,
	})
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	require.Equal(t, "INV-A", res.Allocations[0].InvoiceNumber)
}

func TestAllocateExcessSkipsOtherPayers(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.addInvoice(invoices.Invoice{Number: "INV-OTHER", TotalAmount: dec("50"), Status: invoices.StatusPending, CustomerID: ptr(2), InvoiceDate: date("2024-01-01")})
	repo.addInvoice(invoices.Invoice{Number: "BILL-1", TotalAmount: dec("50"), Status: invoices.StatusPending, VendorID: ptr(1), InvoiceDate: date("2024-01-01")})

	res, err := AllocateExcess(ctx, repo, AllocationInput{
		PayerKind: ledger.KindCustomer, PayerID: 1, Excess: dec("50"),
		ExcludeInvoice: "INV-0", Reference: "PAY-X", Type: TypeIncome,
	})
	require.NoError(t, err)
	require.Empty(t, res.Allocations)
	require.True(t, res.Unallocated.Equal(dec("50")))
}

func TestAllocateExcessInvalidPayer(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()

	_, err := AllocateExcess(ctx, repo, AllocationInput{PayerKind: ledger.KindCustomer, PayerID: 0, Excess: dec("10")})
	require.ErrorIs(t, err, ErrInvalidPayer)

	_, err = AllocateExcess(ctx, repo, AllocationInput{PayerKind: ledger.KindCompany, PayerID: 5, Excess: dec("10")})
	require.ErrorIs(t, err, ErrInvalidPayer)
}

func TestAllocateExcessZeroExcessNoop(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.addInvoice(invoices.Invoice{Number: "INV-1", TotalAmount: dec("50"), Status: invoices.StatusPending, CustomerID: ptr(1), InvoiceDate: date("2024-01-01")})

	res, err := AllocateExcess(ctx, repo, AllocationInput{
		PayerKind: ledger.KindCustomer, PayerID: 1, Excess: decimal.Zero,
		ExcludeInvoice: "INV-0", Reference: "PAY-X", Type: TypeIncome,
	})
	require.NoError(t, err)
	require.Empty(t, res.Allocations)
	require.Empty(t, repo.payments)
}
