package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/observability"
	"github.com/cargoline/cargoline/internal/shared"
)

// Repository opens the atomic unit every payment runs in. Either all effects
// (ledger balance, audit row, payment rows, invoice status, journal entry)
// land, or none do.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the transaction-scoped persistence surface of a payment.
// Embedding the ledger and journal stores keeps every write on the same
// database transaction.
type TxRepository interface {
	ledger.Store
	journals.Store
	AllocatorStore

	// GetInvoiceForUpdate locks the invoice row. Lock order is fixed:
	// invoice first, then payer entity, to keep concurrent payments
	// deadlock-free.
	GetInvoiceForUpdate(ctx context.Context, invoiceNumber string) (invoices.Invoice, error)
}

// IdempotencyGuard dedupes retried payment references. The ledger append is
// deliberately not idempotent, so the processor is the dedupe boundary.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "payments"

// Service orchestrates a single payment event end to end.
type Service struct {
	repo             Repository
	builder          *journals.Builder
	idem             IdempotencyGuard
	logger           *slog.Logger
	metrics          *observability.Metrics
	companyAccountID int64
	now              func() time.Time
}

func NewService(repo Repository, builder *journals.Builder, idem IdempotencyGuard, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, builder: builder, idem: idem, logger: logger, metrics: metrics, now: time.Now}
}

// WithCompanyAccount enables mirroring of cash movements onto the company's
// own ledger account.
func (s *Service) WithCompanyAccount(id int64) {
	s.companyAccountID = id
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ProcessPayment applies one payment against its named invoice, routes any
// overpayment to the payer's other outstanding invoices oldest-first, books
// exactly one ledger transaction for the full amount, and recomputes the
// invoice status. Runs in a single storage transaction; on any failure no
// partial state remains.
func (s *Service) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (ProcessPaymentResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return ProcessPaymentResult{}, ErrInvalidAmount
	}
	if in.Type != TypeIncome && in.Type != TypeExpense {
		return ProcessPaymentResult{}, ErrInvalidType
	}
	reference := in.Reference
	if reference == "" {
		reference = "PAY-" + uuid.NewString()
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	// The reference is claimed outside the payment transaction so a concurrent
	// retry is rejected even while this attempt is still in flight. A crash
	// before the compensating Delete below leaves the reference held until the
	// scheduled cleanup purges it.
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, reference, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return ProcessPaymentResult{}, ErrDuplicateReference
			}
			return ProcessPaymentResult{}, err
		}
	}

	var result ProcessPaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, in.InvoiceNumber)
		if err != nil {
			return err
		}
		payerKind, payerID, err := payerFor(inv, in.Type)
		if err != nil {
			return err
		}
		led := ledger.New(tx)
		// Locks the payer row; invoice is already locked above.
		if _, err := tx.GetEntityForUpdate(ctx, payerKind, payerID); err != nil {
			return err
		}

		calc := invoices.NewCalculator(tx)
		before, err := calc.Calculate(ctx, inv.Number, inv.TotalAmount, inv.Status)
		if err != nil {
			return err
		}
		amountForInvoice := decimal.Min(in.Amount, before.RemainingAmount)
		overpayment := in.Amount.Sub(amountForInvoice)

		fromParty, toParty := parties(in.Type, payerKind, payerID)

		var allocation *AllocationResult
		description := in.Description
		if description == "" {
			description = fmt.Sprintf("Payment %s against %s", reference, inv.Number)
		}
		if overpayment.IsPositive() {
			res, err := AllocateExcess(ctx, tx, AllocationInput{
				PayerKind:      payerKind,
				PayerID:        payerID,
				Excess:         overpayment,
				ExcludeInvoice: inv.Number,
				Reference:      reference,
				Type:           in.Type,
				Mode:           in.Mode,
				FromParty:      fromParty,
				ToParty:        toParty,
				PaidAt:         paidAt,
			})
			if err != nil {
				return err
			}
			allocation = &res
			if len(res.Allocations) > 0 {
				allocated := overpayment.Sub(res.Unallocated)
				description = fmt.Sprintf("%s; %s of it covered %d other invoice(s)",
					description, allocated.StringFixed(2), len(res.Allocations))
			}
		}

		// One ledger transaction for the full amount. The audit trail reads
		// "payer paid X, part of which covered other invoices" instead of
		// fragmenting one payment event into several rows.
		if _, err := led.Append(ctx, ledger.AppendInput{
			Kind:          payerKind,
			EntityID:      payerID,
			Direction:     ledger.Credit,
			Amount:        in.Amount,
			Description:   description,
			Reference:     reference,
			InvoiceNumber: inv.Number,
		}); err != nil {
			return err
		}
		s.postJournal(ctx, tx, journalKindForPayment(payerKind), in.Amount, description, reference)

		if s.companyAccountID != 0 {
			companyDir := ledger.Credit
			companyJournal := journals.CompanyDebit
			if in.Type == TypeExpense {
				companyDir = ledger.Debit
				companyJournal = journals.CompanyCredit
			}
			if _, err := led.Append(ctx, ledger.AppendInput{
				Kind:          ledger.KindCompany,
				EntityID:      s.companyAccountID,
				Direction:     companyDir,
				Amount:        in.Amount,
				Description:   description,
				Reference:     reference,
				InvoiceNumber: inv.Number,
			}); err != nil {
				return err
			}
			s.postJournal(ctx, tx, companyJournal, in.Amount, description, reference)
		}

		// The primary row carries only what the named invoice absorbed;
		// routed overpayment lives in the allocation rows. Summing every
		// row for an invoice then yields exactly what was applied to it.
		payment := Payment{Type: in.Type, Amount: decimal.Zero, Reference: reference, InvoiceNumber: inv.Number}
		if amountForInvoice.IsPositive() {
			payment, err = tx.CreatePayment(ctx, CreatePaymentInput{
				Type:          in.Type,
				Amount:        amountForInvoice,
				Mode:          in.Mode,
				Reference:     reference,
				InvoiceNumber: inv.Number,
				FromParty:     fromParty,
				ToParty:       toParty,
				Description:   description,
				PaidAt:        paidAt,
			})
			if err != nil {
				return err
			}
		}

		after, err := calc.Calculate(ctx, inv.Number, inv.TotalAmount, inv.Status)
		if err != nil {
			return err
		}
		if err := tx.UpdateInvoiceStatus(ctx, inv.Number, after.Status); err != nil {
			return err
		}

		result = ProcessPaymentResult{Payment: payment, Invoice: after, Allocation: allocation}
		return nil
	})
	if err != nil {
		if s.idem != nil {
			// Free the reference so the caller can retry after a rollback.
			_ = s.idem.Delete(ctx, reference)
		}
		s.metrics.PaymentFailed(string(in.Type))
		return ProcessPaymentResult{}, err
	}

	allocations := 0
	if result.Allocation != nil {
		allocations = len(result.Allocation.Allocations)
	}
	s.metrics.PaymentProcessed(string(in.Type), allocations)
	s.logger.Info("payment processed",
		slog.String("invoice", in.InvoiceNumber),
		slog.String("reference", reference),
		slog.String("amount", in.Amount.StringFixed(2)),
		slog.Int("allocations", allocations),
	)
	return result, nil
}

// postJournal posts a best-effort journal entry. A missing chart account is
// logged and counted but never fails the payment: the ledger balance is
// authoritative, the journal documents it.
func (s *Service) postJournal(ctx context.Context, store journals.Store, kind journals.PostingKind, amount decimal.Decimal, description, reference string) {
	if s.builder == nil {
		return
	}
	if _, err := s.builder.Post(ctx, store, journals.PostingInput{
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Reference:   reference,
	}); err != nil {
		if errors.Is(err, journals.ErrMissingAccount) {
			s.metrics.JournalPostSkipped()
			s.logger.Warn("journal post skipped",
				slog.String("kind", string(kind)),
				slog.String("reference", reference),
				slog.Any("error", err),
			)
			return
		}
		s.logger.Error("journal post failed",
			slog.String("kind", string(kind)),
			slog.String("reference", reference),
			slog.Any("error", err),
		)
	}
}

func payerFor(inv invoices.Invoice, paymentType Type) (ledger.EntityKind, int64, error) {
	switch paymentType {
	case TypeIncome:
		if inv.CustomerID == nil {
			return "", 0, ErrUnlinkedInvoice
		}
		return ledger.KindCustomer, *inv.CustomerID, nil
	case TypeExpense:
		if inv.VendorID == nil {
			return "", 0, ErrUnlinkedInvoice
		}
		return ledger.KindVendor, *inv.VendorID, nil
	}
	return "", 0, ErrInvalidType
}

func journalKindForPayment(kind ledger.EntityKind) journals.PostingKind {
	if kind == ledger.KindVendor {
		return journals.VendorCredit
	}
	return journals.CustomerCredit
}

func parties(paymentType Type, kind ledger.EntityKind, payerID int64) (string, string) {
	payer := fmt.Sprintf("%s:%d", kind, payerID)
	if paymentType == TypeIncome {
		return payer, "company"
	}
	return "company", payer
}
