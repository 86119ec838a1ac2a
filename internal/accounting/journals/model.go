package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingKind names the six ledger events the engine journals. Each maps to
// a fixed debit/credit account pair in the chart of accounts.
type PostingKind string

const (
	CustomerDebit  PostingKind = "CUSTOMER_DEBIT"
	CustomerCredit PostingKind = "CUSTOMER_CREDIT"
	VendorDebit    PostingKind = "VENDOR_DEBIT"
	VendorCredit   PostingKind = "VENDOR_CREDIT"
	CompanyDebit   PostingKind = "COMPANY_DEBIT"
	CompanyCredit  PostingKind = "COMPANY_CREDIT"
)

// JournalEntry is a balanced double-entry record. It documents a ledger
// movement but is secondary to it: the running balances are authoritative.
type JournalEntry struct {
	ID          int64
	EntryNumber string
	Description string
	Reference   string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsPosted    bool
	EntryDate   time.Time
	CreatedAt   time.Time
	Lines       []Line
}

// Line carries either a debit or a credit against one account, never both.
type Line struct {
	ID             int64
	JournalEntryID int64
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

// PostingInput describes one entry to build.
type PostingInput struct {
	Kind        PostingKind
	Amount      decimal.Decimal
	Description string
	Reference   string
	Date        time.Time
}
