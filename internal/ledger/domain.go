package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind identifies which running-balance ledger a transaction targets.
type EntityKind string

const (
	KindCustomer EntityKind = "CUSTOMER"
	KindVendor   EntityKind = "VENDOR"
	KindCompany  EntityKind = "COMPANY"
)

// Direction of a ledger adjustment. What "increase" means depends on the
// entity kind, see Append.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// Entity is a balance-carrying party: a customer, a vendor, or one of the
// company's own accounts.
type Entity struct {
	ID             int64
	Kind           EntityKind
	Name           string
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transaction is an append-only audit row recording a single balance change.
type Transaction struct {
	ID              int64
	EntityKind      EntityKind
	EntityID        int64
	Direction       Direction
	Amount          decimal.Decimal
	Description     string
	Reference       string
	InvoiceNumber   string
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	CreatedAt       time.Time
}

// AppendInput describes one balance adjustment.
type AppendInput struct {
	Kind          EntityKind
	EntityID      int64
	Direction     Direction
	Amount        decimal.Decimal
	Description   string
	Reference     string
	InvoiceNumber string
}

// AppendResult reports the balance movement an Append produced.
type AppendResult struct {
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// CorrectInput rewrites the audit row booked for an invoice after the
// invoice's amount was edited. Used only by the reconciler.
type CorrectInput struct {
	Kind          EntityKind
	EntityID      int64
	InvoiceNumber string
	OldAmount     decimal.Decimal
	NewAmount     decimal.Decimal
	Description   string
}
