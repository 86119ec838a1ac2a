package invoices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/ledger"
)

// Status enumerates invoice lifecycle states. PENDING/PARTIAL/PAID are pure
// projections of payment history; OVERDUE and CANCELLED are applied by
// external flows and never derived here.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoices: not found")
	// ErrUnlinked indicates the invoice has no payer for the requested payment type.
	ErrUnlinked = errors.New("invoices: invoice has no payer")
)

// Invoice models a shipment invoice. It belongs to exactly one payer: a
// customer (we billed them) or a vendor (they billed us).
type Invoice struct {
	ID          int64
	Number      string
	TotalAmount decimal.Decimal
	Status      Status
	CustomerID  *int64
	VendorID    *int64
	InvoiceDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Payer resolves the invoice's ledger entity.
func (inv Invoice) Payer() (ledger.EntityKind, int64, error) {
	switch {
	case inv.CustomerID != nil && inv.VendorID != nil:
		return "", 0, ErrUnlinked
	case inv.CustomerID != nil:
		return ledger.KindCustomer, *inv.CustomerID, nil
	case inv.VendorID != nil:
		return ledger.KindVendor, *inv.VendorID, nil
	}
	return "", 0, ErrUnlinked
}
