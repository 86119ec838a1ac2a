package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/payments"
	"github.com/cargoline/cargoline/internal/platform/httpx"
	"github.com/cargoline/cargoline/internal/reconcile"
)

// respondError translates the domain error taxonomy into RFC7807 responses.
// Anything unrecognized falls through to the generic httpx mapping, which
// ends in a 500 with the detail withheld.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, invoices.ErrNotFound), errors.Is(err, ledger.ErrEntityNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, payments.ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Duplicate Reference", err.Error())
	case errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrInvalidType),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, reconcile.ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	case errors.Is(err, payments.ErrUnlinkedInvoice),
		errors.Is(err, payments.ErrInvalidPayer),
		errors.Is(err, invoices.ErrUnlinked),
		errors.Is(err, reconcile.ErrInvalidPayer):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Payer", err.Error())
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
	}
}
