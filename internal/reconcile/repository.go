package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/platform/db"
)

// PgRepository provides PostgreSQL backed persistence for invoice
// reconciliation.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx runs fn inside one RepeatableRead transaction carrying the ledger
// and journal stores.
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

func (r *txRepository) UpdateInvoiceBilling(ctx context.Context, invoiceID int64, amount decimal.Decimal, customerID, vendorID *int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET total_amount = $2, customer_id = $3, vendor_id = $4, updated_at = NOW() WHERE id = $1`,
		invoiceID, amount, customerID, vendorID)
	return err
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
