package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/platform/httpx"
)

type ledgerTransactionResponse struct {
	Direction       string          `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ledgerResponse struct {
	Kind           string                      `json:"kind"`
	EntityID       int64                       `json:"entity_id"`
	CurrentBalance decimal.Decimal             `json:"current_balance"`
	Transactions   []ledgerTransactionResponse `json:"transactions"`
}

// getLedger returns an entity's running balance plus its full audit trail.
func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseEntityKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "kind must be customer, vendor, or company")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	txns, err := h.ledger.ListTransactions(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := ledgerResponse{
		Kind:           strings.ToLower(string(kind)),
		EntityID:       id,
		CurrentBalance: balance,
		Transactions:   make([]ledgerTransactionResponse, 0, len(txns)),
	}
	for _, t := range txns {
		resp.Transactions = append(resp.Transactions, ledgerTransactionResponse{
			Direction:       string(t.Direction),
			Amount:          t.Amount,
			Description:     t.Description,
			Reference:       t.Reference,
			InvoiceNumber:   t.InvoiceNumber,
			PreviousBalance: t.PreviousBalance,
			NewBalance:      t.NewBalance,
			CreatedAt:       t.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func parseEntityKind(raw string) (ledger.EntityKind, bool) {
	switch strings.ToLower(raw) {
	case "customer":
		return ledger.KindCustomer, true
	case "vendor":
		return ledger.KindVendor, true
	case "company":
		return ledger.KindCompany, true
	}
	return "", false
}
