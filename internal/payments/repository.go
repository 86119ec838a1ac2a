package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/platform/db"
)

// PgRepository provides PostgreSQL backed persistence for payment processing.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx runs fn inside one RepeatableRead transaction. The tx-scoped
// repository carries the ledger and journal stores on the same transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			tx:      tx,
			TxStore: ledger.NewTxStore(tx),
			journal: journals.NewTxStore(tx),
		})
	})
}

type txRepository struct {
	tx pgx.Tx
	*ledger.TxStore
	journal *journals.TxStore
}

func (r *txRepository) NextEntrySequence(ctx context.Context) (int64, error) {
	return r.journal.NextEntrySequence(ctx)
}

func (r *txRepository) InsertEntry(ctx context.Context, entry journals.JournalEntry) (int64, error) {
	return r.journal.InsertEntry(ctx, entry)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []journals.Line) error {
	return r.journal.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, invoiceNumber string) (invoices.Invoice, error) {
	var inv invoices.Invoice
	err := r.tx.QueryRow(ctx, `SELECT id, invoice_number, total_amount, status, customer_id, vendor_id, invoice_date, created_at, updated_at
FROM invoices WHERE invoice_number = $1 FOR UPDATE`, invoiceNumber).Scan(
		&inv.ID, &inv.Number, &inv.TotalAmount, &inv.Status,
		&inv.CustomerID, &inv.VendorID, &inv.InvoiceDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoices.Invoice{}, invoices.ErrNotFound
		}
		return invoices.Invoice{}, err
	}
	return inv, nil
}

// ListOutstandingByPayer returns allocation candidates oldest-first; the
// ordering is business policy and part of the contract.
func (r *txRepository) ListOutstandingByPayer(ctx context.Context, kind ledger.EntityKind, payerID int64, excludeInvoice string) ([]invoices.Invoice, error) {
	payerColumn := "customer_id"
	if kind == ledger.KindVendor {
		payerColumn = "vendor_id"
	}
	rows, err := r.tx.Query(ctx, `SELECT id, invoice_number, total_amount, status, customer_id, vendor_id, invoice_date, created_at, updated_at
FROM invoices
WHERE `+payerColumn+` = $1 AND invoice_number <> $2 AND status IN ('PENDING','PARTIAL')
ORDER BY invoice_date, invoice_number
FOR UPDATE`, payerID, excludeInvoice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []invoices.Invoice
	for rows.Next() {
		var inv invoices.Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.TotalAmount, &inv.Status,
			&inv.CustomerID, &inv.VendorID, &inv.InvoiceDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *txRepository) SumPaymentsByInvoice(ctx context.Context, invoiceNumber string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_number = $1`, invoiceNumber).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *txRepository) CreatePayment(ctx context.Context, input CreatePaymentInput) (Payment, error) {
	payment := Payment{
		Type:          input.Type,
		Amount:        input.Amount,
		Mode:          input.Mode,
		Reference:     input.Reference,
		InvoiceNumber: input.InvoiceNumber,
		FromParty:     input.FromParty,
		ToParty:       input.ToParty,
		Description:   input.Description,
		PaidAt:        input.PaidAt,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (transaction_type, amount, mode, reference, invoice_number, from_party, to_party, description, paid_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id, created_at`,
		string(input.Type), input.Amount, input.Mode, input.Reference, input.InvoiceNumber,
		input.FromParty, input.ToParty, input.Description, input.PaidAt,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

func (r *txRepository) UpdateInvoiceStatus(ctx context.Context, invoiceNumber string, status invoices.Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE invoice_number = $2`, string(status), invoiceNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return invoices.ErrNotFound
	}
	return nil
}

// ListByInvoice returns all payment rows against an invoice, oldest first.
func (r *PgRepository) ListByInvoice(ctx context.Context, invoiceNumber string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_type, amount, mode, reference, invoice_number, from_party, to_party, COALESCE(description,''), paid_at, created_at
FROM payments WHERE invoice_number = $1 ORDER BY id`, invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Type, &p.Amount, &p.Mode, &p.Reference, &p.InvoiceNumber,
			&p.FromParty, &p.ToParty, &p.Description, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
