package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/platform/httpx"
	"github.com/cargoline/cargoline/internal/reconcile"
)

type invoiceResponse struct {
	Number          string          `json:"number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	VendorID        *int64          `json:"vendor_id,omitempty"`
	InvoiceDate     time.Time       `json:"invoice_date"`
}

// getInvoiceStatus returns the invoice with its status derived from payment
// history. Reading never mutates anything.
func (h *Handler) getInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	inv, err := h.invoices.GetByNumber(r.Context(), number)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.cache.FetchSummary(r.Context(), inv.Number, func(ctx context.Context) (invoices.Summary, error) {
		return invoices.NewCalculator(h.invoices).Calculate(ctx, inv.Number, inv.TotalAmount, inv.Status)
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceResponse{
		Number:          inv.Number,
		TotalAmount:     inv.TotalAmount,
		Status:          string(summary.Status),
		TotalPaid:       summary.TotalPaid,
		RemainingAmount: summary.RemainingAmount,
		CustomerID:      inv.CustomerID,
		VendorID:        inv.VendorID,
		InvoiceDate:     inv.InvoiceDate,
	})
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	customerID, err := optionalID(r.URL.Query().Get("customer_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "customer_id must be an integer")
		return
	}
	vendorID, err := optionalID(r.URL.Query().Get("vendor_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "vendor_id must be an integer")
		return
	}
	if customerID == nil && vendorID == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "customer_id or vendor_id is required")
		return
	}

	list, err := h.invoices.ListByPayer(r.Context(), customerID, vendorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]invoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, invoiceResponse{
			Number:      inv.Number,
			TotalAmount: inv.TotalAmount,
			Status:      string(inv.Status),
			CustomerID:  inv.CustomerID,
			VendorID:    inv.VendorID,
			InvoiceDate: inv.InvoiceDate,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type editInvoiceRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount" validate:"required"`
	CustomerID  *int64          `json:"customer_id"`
	VendorID    *int64          `json:"vendor_id"`
}

// editInvoice reconciles ledger and journal state with the edited amount and
// payer, then reports what changed.
func (h *Handler) editInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	var req editInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	inv, err := h.invoices.GetByNumber(r.Context(), number)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.reconciler.Reconcile(r.Context(), reconcile.Input{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		OldAmount:     inv.TotalAmount,
		NewAmount:     req.TotalAmount,
		OldCustomerID: inv.CustomerID,
		NewCustomerID: req.CustomerID,
		OldVendorID:   inv.VendorID,
		NewVendorID:   req.VendorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.cache.Bump(r.Context()); err != nil {
		h.logger.Warn("cache bump failed", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"number":       inv.Number,
		"change":       string(res.Change),
		"total_amount": req.TotalAmount,
	})
}

func optionalID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
