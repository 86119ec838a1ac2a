package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
)

// Type distinguishes money coming in from money going out.
type Type string

const (
	// TypeIncome is a customer paying us.
	TypeIncome Type = "INCOME"
	// TypeExpense is us paying a vendor.
	TypeExpense Type = "EXPENSE"
)

var (
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = errors.New("payments: amount must be positive")
	// ErrInvalidType indicates an unknown transaction type.
	ErrInvalidType = errors.New("payments: invalid transaction type")
	// ErrInvalidPayer indicates a missing or ambiguous payer for allocation.
	ErrInvalidPayer = errors.New("payments: payer is missing or ambiguous")
	// ErrUnlinkedInvoice indicates the invoice has no payer for the payment type.
	ErrUnlinkedInvoice = errors.New("payments: invoice has no linked payer for this payment type")
	// ErrDuplicateReference indicates a retried reference already processed.
	ErrDuplicateReference = errors.New("payments: reference already processed")
)

// AllocationSuffix tags payment rows created by overpayment allocation.
const AllocationSuffix = "-ALLOC"

// Payment is immutable once created. One logical payment may produce several
// rows: the primary row against the named invoice plus one allocation row per
// additional invoice the overpayment reached.
type Payment struct {
	ID            int64
	Type          Type
	Amount        decimal.Decimal
	Mode          string
	Reference     string
	InvoiceNumber string
	FromParty     string
	ToParty       string
	Description   string
	PaidAt        time.Time
	CreatedAt     time.Time
}

// CreatePaymentInput carries the fields for one payment row.
type CreatePaymentInput struct {
	Type          Type
	Amount        decimal.Decimal
	Mode          string
	Reference     string
	InvoiceNumber string
	FromParty     string
	ToParty       string
	Description   string
	PaidAt        time.Time
}

// ProcessPaymentInput is the processor's request surface.
type ProcessPaymentInput struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Type          Type
	Mode          string
	Reference     string
	Description   string
	PaidAt        time.Time
}

// Allocation records the portion of an overpayment routed to one invoice.
type Allocation struct {
	InvoiceNumber string
	AmountApplied decimal.Decimal
	NewStatus     invoices.Status
}

// AllocationResult is the outcome of distributing an overpayment.
type AllocationResult struct {
	Allocations []Allocation
	Unallocated decimal.Decimal
}

// AllocationInput describes an overpayment to distribute across the payer's
// other outstanding invoices.
type AllocationInput struct {
	PayerKind      ledger.EntityKind
	PayerID        int64
	Excess         decimal.Decimal
	ExcludeInvoice string
	Reference      string
	Type           Type
	Mode           string
	FromParty      string
	ToParty        string
	PaidAt         time.Time
}

// ProcessPaymentResult returns the created payment, the invoice's recomputed
// position, and allocation detail when overpayment occurred.
type ProcessPaymentResult struct {
	Payment    Payment
	Invoice    invoices.Summary
	Allocation *AllocationResult
}
