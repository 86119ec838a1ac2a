package accounts

import "time"

// Category enumerates chart-of-account categories.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryEquity    Category = "EQUITY"
	CategoryRevenue   Category = "REVENUE"
	CategoryExpense   Category = "EXPENSE"
)

// Account models a chart of accounts node. The chart is a fixed reference
// table populated by the seed script; the engine only reads it.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Category  Category
	Type      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
