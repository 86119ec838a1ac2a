package reconcile

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/ledger"
)

var (
	// ErrInvalidAmount indicates a non-positive new invoice amount.
	ErrInvalidAmount = errors.New("reconcile: amount must be positive")
	// ErrInvalidPayer indicates an edit that would leave the invoice with
	// no payer, or with both a customer and a vendor.
	ErrInvalidPayer = errors.New("reconcile: payer is missing or ambiguous")
)

// AdjustmentPolicy selects how a decreased invoice amount is booked.
type AdjustmentPolicy string

const (
	// DebitAdjustment rewrites the original DEBIT row to the smaller
	// amount. An invoice recognized against a payer stays one debit,
	// whatever its current size.
	DebitAdjustment AdjustmentPolicy = "DEBIT_ADJUSTMENT"
	// CreditReversal leaves the original row intact and appends a CREDIT
	// for the decrease, the way a credit note would.
	CreditReversal AdjustmentPolicy = "CREDIT_REVERSAL"
)

// Input describes an invoice edit: the before and after of the fields that
// carry ledger effect. Unset payer pointers mean "no payer of that kind".
type Input struct {
	InvoiceID     int64
	InvoiceNumber string
	OldAmount     decimal.Decimal
	NewAmount     decimal.Decimal
	OldCustomerID *int64
	NewCustomerID *int64
	OldVendorID   *int64
	NewVendorID   *int64
}

// Change classifies what an edit did to the ledger.
type Change string

const (
	ChangeNone         Change = "NONE"
	ChangeReassignment Change = "REASSIGNMENT"
	ChangeAmount       Change = "AMOUNT"
	ChangeFreshBooking Change = "FRESH_BOOKING"
)

// Result reports the ledger effect of one reconciliation.
type Result struct {
	Change Change
	// OldPayer / NewPayer are equal unless the edit reassigned the invoice.
	OldPayerKind ledger.EntityKind
	OldPayerID   int64
	NewPayerKind ledger.EntityKind
	NewPayerID   int64
}

// payerOf resolves the (kind, id) pair out of an edit's customer/vendor
// pointers. Exactly one side must be set.
func payerOf(customerID, vendorID *int64) (ledger.EntityKind, int64, error) {
	switch {
	case customerID != nil && vendorID != nil:
		return "", 0, ErrInvalidPayer
	case customerID != nil:
		return ledger.KindCustomer, *customerID, nil
	case vendorID != nil:
		return ledger.KindVendor, *vendorID, nil
	}
	return "", 0, ErrInvalidPayer
}

func samePayer(aKind ledger.EntityKind, aID int64, bKind ledger.EntityKind, bID int64) bool {
	return aKind == bKind && aID == bID
}
