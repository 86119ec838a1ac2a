package invoices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, invoice_number, total_amount, status, customer_id, vendor_id, invoice_date, created_at, updated_at`

// Repository provides pool-backed reads for invoices and their payment sums.
// Status mutations happen inside the payment/reconcile transactions, not here.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.TotalAmount, &inv.Status,
		&inv.CustomerID, &inv.VendorID, &inv.InvoiceDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// GetByNumber loads an invoice by its human-facing number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number)
	return scanInvoice(row)
}

// GetByID loads an invoice by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// SumPaymentsByInvoice implements PaymentSummer against the payments table.
func (r *Repository) SumPaymentsByInvoice(ctx context.Context, invoiceNumber string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_number = $1`, invoiceNumber).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ListByPayer returns a payer's invoices, oldest first.
func (r *Repository) ListByPayer(ctx context.Context, customerID, vendorID *int64) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ($1::bigint IS NULL OR customer_id = $1) AND ($2::bigint IS NULL OR vendor_id = $2) ORDER BY invoice_date, invoice_number`
	rows, err := r.pool.Query(ctx, query, customerID, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.TotalAmount, &inv.Status,
			&inv.CustomerID, &inv.VendorID, &inv.InvoiceDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
