package journals

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisory lock key serializing entry-number allocation across transactions.
const entryNumberLockKey = 7421001

// TxStore implements Store over the transaction opened by the caller.
type TxStore struct {
	tx pgx.Tx
}

func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// NextEntrySequence allocates the next entry number. The advisory lock is
// held until the surrounding transaction commits, so numbers stay unique and
// monotonic; a voided entry never frees its number.
func (s *TxStore) NextEntrySequence(ctx context.Context) (int64, error) {
	if _, err := s.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, entryNumberLockKey); err != nil {
		return 0, err
	}
	var max int64
	err := s.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(entry_number FROM 4) AS BIGINT)), 0) FROM journal_entries`,
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s *TxStore) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_number, description, reference, total_debit, total_credit, is_posted, entry_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		entry.EntryNumber, entry.Description, entry.Reference,
		entry.TotalDebit, entry.TotalCredit, entry.IsPosted, entry.EntryDate,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *TxStore) InsertLines(ctx context.Context, entryID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := s.tx.Exec(ctx, `INSERT INTO journal_entry_lines (journal_entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

// Repository provides pool-backed reads for the integrity job and listings.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPosted returns posted entries with their lines, oldest first.
func (r *Repository) ListPosted(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entry_number, description, COALESCE(reference,''), total_debit, total_credit, is_posted, entry_date, created_at
FROM journal_entries WHERE is_posted ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.EntryNumber, &e.Description, &e.Reference,
			&e.TotalDebit, &e.TotalCredit, &e.IsPosted, &e.EntryDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		lines, err := r.linesFor(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

func (r *Repository) linesFor(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, journal_entry_id, account_id, debit, credit FROM journal_entry_lines WHERE journal_entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.JournalEntryID, &l.AccountID, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
