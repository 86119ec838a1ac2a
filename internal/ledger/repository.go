package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func entityTable(kind EntityKind) (string, error) {
	switch kind {
	case KindCustomer:
		return "customers", nil
	case KindVendor:
		return "vendors", nil
	case KindCompany:
		return "company_accounts", nil
	}
	return "", fmt.Errorf("ledger: unknown entity kind %q", kind)
}

func transactionTable(kind EntityKind) (string, string, error) {
	switch kind {
	case KindCustomer:
		return "customer_transactions", "customer_id", nil
	case KindVendor:
		return "vendor_transactions", "vendor_id", nil
	case KindCompany:
		return "company_transactions", "company_account_id", nil
	}
	return "", "", fmt.Errorf("ledger: unknown entity kind %q", kind)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStore implements Store over a pgx querier, typically the transaction
// opened by the payment processor or the reconciler.
type TxStore struct {
	q querier
}

// NewTxStore wraps an open transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{q: tx}
}

func (s *TxStore) GetEntityForUpdate(ctx context.Context, kind EntityKind, id int64) (Entity, error) {
	table, err := entityTable(kind)
	if err != nil {
		return Entity{}, err
	}
	query := fmt.Sprintf(`SELECT id, name, current_balance, created_at, updated_at FROM %s WHERE id = $1 FOR UPDATE`, table)
	var e Entity
	e.Kind = kind
	err = s.q.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.CurrentBalance, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entity{}, ErrEntityNotFound
		}
		return Entity{}, err
	}
	return e, nil
}

func (s *TxStore) UpdateEntityBalance(ctx context.Context, kind EntityKind, id int64, balance decimal.Decimal) error {
	table, err := entityTable(kind)
	if err != nil {
		return err
	}
	tag, err := s.q.Exec(ctx, fmt.Sprintf(`UPDATE %s SET current_balance = $1, updated_at = NOW() WHERE id = $2`, table), balance, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntityNotFound
	}
	return nil
}

func (s *TxStore) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	table, fk, err := transactionTable(txn.EntityKind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, type, amount, description, reference, invoice_number, previous_balance, new_balance, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING id`, table, fk)
	var id int64
	err = s.q.QueryRow(ctx, query,
		txn.EntityID,
		string(txn.Direction),
		txn.Amount,
		txn.Description,
		txn.Reference,
		nullString(txn.InvoiceNumber),
		txn.PreviousBalance,
		txn.NewBalance,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *TxStore) FindTransactionByInvoice(ctx context.Context, kind EntityKind, entityID int64, invoiceNumber string) (Transaction, error) {
	table, fk, err := transactionTable(kind)
	if err != nil {
		return Transaction{}, err
	}
	query := fmt.Sprintf(`SELECT id, %s, type, amount, description, reference, COALESCE(invoice_number, ''), previous_balance, new_balance, created_at
FROM %s WHERE %s = $1 AND invoice_number = $2 AND type = $3 ORDER BY id LIMIT 1`, fk, table, fk)
	var t Transaction
	t.EntityKind = kind
	err = s.q.QueryRow(ctx, query, entityID, invoiceNumber, string(Debit)).Scan(
		&t.ID, &t.EntityID, &t.Direction, &t.Amount, &t.Description,
		&t.Reference, &t.InvoiceNumber, &t.PreviousBalance, &t.NewBalance, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (s *TxStore) UpdateTransaction(ctx context.Context, txn Transaction) error {
	table, _, err := transactionTable(txn.EntityKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET amount = $1, description = $2, previous_balance = $3, new_balance = $4 WHERE id = $5`, table)
	tag, err := s.q.Exec(ctx, query, txn.Amount, txn.Description, txn.PreviousBalance, txn.NewBalance, txn.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Repository provides pool-backed read access for reporting and the nightly
// integrity job. Mutations go through TxStore only.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEntityIDs returns all entity ids of a kind.
func (r *Repository) ListEntityIDs(ctx context.Context, kind EntityKind) ([]int64, error) {
	table, err := entityTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBalance reads an entity's current balance without locking.
func (r *Repository) GetBalance(ctx context.Context, kind EntityKind, id int64) (decimal.Decimal, error) {
	table, err := entityTable(kind)
	if err != nil {
		return decimal.Zero, err
	}
	var balance decimal.Decimal
	err = r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT current_balance FROM %s WHERE id = $1`, table), id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrEntityNotFound
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// ListTransactions returns an entity's full audit trail in booking order.
func (r *Repository) ListTransactions(ctx context.Context, kind EntityKind, entityID int64) ([]Transaction, error) {
	table, fk, err := transactionTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, %s, type, amount, description, reference, COALESCE(invoice_number, ''), previous_balance, new_balance, created_at
FROM %s WHERE %s = $1 ORDER BY id`, fk, table, fk)
	rows, err := r.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []Transaction
	for rows.Next() {
		var t Transaction
		t.EntityKind = kind
		if err := rows.Scan(&t.ID, &t.EntityID, &t.Direction, &t.Amount, &t.Description,
			&t.Reference, &t.InvoiceNumber, &t.PreviousBalance, &t.NewBalance, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
