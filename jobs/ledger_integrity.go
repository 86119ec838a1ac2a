package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/ledger"
)

// IntegrityViolation describes one entity or journal entry that failed the check.
type IntegrityViolation struct {
	Kind     string          `json:"kind"`
	EntityID int64           `json:"entity_id,omitempty"`
	Entry    string          `json:"entry,omitempty"`
	Stored   decimal.Decimal `json:"stored"`
	Replayed decimal.Decimal `json:"replayed"`
}

// IntegrityReport is the outcome of one integrity run.
type IntegrityReport struct {
	EntitiesChecked int                  `json:"entities_checked"`
	EntriesChecked  int                  `json:"entries_checked"`
	Violations      []IntegrityViolation `json:"violations,omitempty"`
}

// IntegrityChecker replays every ledger's transaction log from zero and
// verifies it reproduces the stored balance, then verifies every posted
// journal entry is balanced. Read-only: it reports, it never repairs.
type IntegrityChecker struct {
	ledger   *ledger.Repository
	journals *journals.Repository
	logger   *slog.Logger
}

func NewIntegrityChecker(ledgerRepo *ledger.Repository, journalRepo *journals.Repository, logger *slog.Logger) *IntegrityChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityChecker{ledger: ledgerRepo, journals: journalRepo, logger: logger}
}

// Run checks all three ledgers concurrently, then the journal.
func (c *IntegrityChecker) Run(ctx context.Context) (IntegrityReport, error) {
	kinds := []ledger.EntityKind{ledger.KindCustomer, ledger.KindVendor, ledger.KindCompany}

	reports := make([]IntegrityReport, len(kinds))
	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			report, err := c.checkKind(ctx, kind)
			if err != nil {
				return fmt.Errorf("jobs: integrity %s: %w", kind, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IntegrityReport{}, err
	}

	var report IntegrityReport
	for _, r := range reports {
		report.EntitiesChecked += r.EntitiesChecked
		report.Violations = append(report.Violations, r.Violations...)
	}

	entries, err := c.journals.ListPosted(ctx)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("jobs: integrity journal: %w", err)
	}
	for _, entry := range entries {
		report.EntriesChecked++
		lineDebit, lineCredit := decimal.Zero, decimal.Zero
		for _, line := range entry.Lines {
			lineDebit = lineDebit.Add(line.Debit)
			lineCredit = lineCredit.Add(line.Credit)
		}
		if !entry.TotalDebit.Equal(entry.TotalCredit) || !lineDebit.Equal(entry.TotalDebit) || !lineCredit.Equal(entry.TotalCredit) {
			report.Violations = append(report.Violations, IntegrityViolation{
				Kind:     "journal",
				Entry:    entry.EntryNumber,
				Stored:   entry.TotalDebit,
				Replayed: lineDebit,
			})
		}
	}
	return report, nil
}

func (c *IntegrityChecker) checkKind(ctx context.Context, kind ledger.EntityKind) (IntegrityReport, error) {
	ids, err := c.ledger.ListEntityIDs(ctx, kind)
	if err != nil {
		return IntegrityReport{}, err
	}
	var report IntegrityReport
	for _, id := range ids {
		stored, err := c.ledger.GetBalance(ctx, kind, id)
		if err != nil {
			return IntegrityReport{}, err
		}
		txns, err := c.ledger.ListTransactions(ctx, kind, id)
		if err != nil {
			return IntegrityReport{}, err
		}
		replayed := ledger.Replay(kind, txns)
		report.EntitiesChecked++
		if !replayed.Equal(stored) {
			report.Violations = append(report.Violations, IntegrityViolation{
				Kind:     string(kind),
				EntityID: id,
				Stored:   stored,
				Replayed: replayed,
			})
		}
	}
	return report, nil
}

// HandleLedgerIntegrityTask processes TaskLedgerIntegrity tasks.
func (c *IntegrityChecker) HandleLedgerIntegrityTask(ctx context.Context, t *asynq.Task) error {
	report, err := c.Run(ctx)
	if err != nil {
		return err
	}
	if len(report.Violations) > 0 {
		detail, _ := json.Marshal(report.Violations)
		c.logger.Error("ledger integrity violations",
			slog.Int("entities_checked", report.EntitiesChecked),
			slog.Int("entries_checked", report.EntriesChecked),
			slog.Int("violations", len(report.Violations)),
			slog.String("detail", string(detail)),
		)
		return fmt.Errorf("jobs: %d integrity violations", len(report.Violations))
	}
	c.logger.Info("ledger integrity check passed",
		slog.Int("entities_checked", report.EntitiesChecked),
		slog.Int("entries_checked", report.EntriesChecked),
	)
	return nil
}
