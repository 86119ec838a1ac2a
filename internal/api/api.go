// Package api exposes the payment, invoice, and ledger operations as a thin
// JSON surface over the domain services.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/payments"
	"github.com/cargoline/cargoline/internal/reconcile"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	logger     *slog.Logger
	validate   *validator.Validate
	payments   *payments.Service
	reconciler *reconcile.Service
	invoices   *invoices.Repository
	cache      *invoices.StatusCache
	payRows    *payments.PgRepository
	ledger     *ledger.Repository
}

func NewHandler(logger *slog.Logger, paymentSvc *payments.Service, reconciler *reconcile.Service, invoiceRepo *invoices.Repository, cache *invoices.StatusCache, payRows *payments.PgRepository, ledgerRepo *ledger.Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		validate:   validator.New(),
		payments:   paymentSvc,
		reconciler: reconciler,
		invoices:   invoiceRepo,
		cache:      cache,
		payRows:    payRows,
		ledger:     ledgerRepo,
	}
}

// MountRoutes registers the API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.createPayment)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{number}", h.getInvoiceStatus)
	r.Get("/invoices/{number}/status", h.getInvoiceStatus)
	r.Put("/invoices/{number}", h.editInvoice)
	r.Get("/ledger/{kind}/{id}", h.getLedger)
}
