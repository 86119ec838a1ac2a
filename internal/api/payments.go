package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/payments"
	"github.com/cargoline/cargoline/internal/platform/httpx"
)

type createPaymentRequest struct {
	InvoiceNumber string          `json:"invoice_number" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Type          string          `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Mode          string          `json:"mode" validate:"omitempty,max=32"`
	Reference     string          `json:"reference" validate:"omitempty,max=64"`
	Description   string          `json:"description" validate:"omitempty,max=500"`
	PaidAt        *time.Time      `json:"paid_at"`
}

type allocationResponse struct {
	InvoiceNumber string          `json:"invoice_number"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	NewStatus     string          `json:"new_status"`
}

type createPaymentResponse struct {
	PaymentID       int64                `json:"payment_id,omitempty"`
	Reference       string               `json:"reference"`
	InvoiceNumber   string               `json:"invoice_number"`
	InvoiceStatus   string               `json:"invoice_status"`
	TotalPaid       decimal.Decimal      `json:"total_paid"`
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	Allocations     []allocationResponse `json:"allocations,omitempty"`
	Unallocated     *decimal.Decimal     `json:"unallocated,omitempty"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := payments.ProcessPaymentInput{
		InvoiceNumber: req.InvoiceNumber,
		Amount:        req.Amount,
		Type:          payments.Type(req.Type),
		Mode:          req.Mode,
		Reference:     req.Reference,
		Description:   req.Description,
	}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}

	res, err := h.payments.ProcessPayment(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.cache.Bump(r.Context()); err != nil {
		h.logger.Warn("cache bump failed", slog.Any("error", err))
	}

	resp := createPaymentResponse{
		PaymentID:       res.Payment.ID,
		Reference:       res.Payment.Reference,
		InvoiceNumber:   req.InvoiceNumber,
		InvoiceStatus:   string(res.Invoice.Status),
		TotalPaid:       res.Invoice.TotalPaid,
		RemainingAmount: res.Invoice.RemainingAmount,
	}
	if res.Allocation != nil {
		for _, a := range res.Allocation.Allocations {
			resp.Allocations = append(resp.Allocations, allocationResponse{
				InvoiceNumber: a.InvoiceNumber,
				AmountApplied: a.AmountApplied,
				NewStatus:     string(a.NewStatus),
			})
		}
		unallocated := res.Allocation.Unallocated
		resp.Unallocated = &unallocated
	}
	httpx.JSON(w, http.StatusCreated, resp)
}
