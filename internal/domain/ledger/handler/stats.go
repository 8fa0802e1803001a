package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

var successBody = map[string]bool{"success": true}

func (h *LedgerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "", "Failed to calculate statistics")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stats)
}

// readAmount decodes {amount} and rejects missing or negative values.
func readAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Amount == nil || req.Amount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return decimal.Zero, false
	}
	return *req.Amount, true
}

func (h *LedgerHandler) setOverride(kind ledger.OverrideKind, label string) http.HandlerFunc {
	failure := "Failed to update " + label
	return func(w http.ResponseWriter, r *http.Request) {
		amount, ok := readAmount(w, r)
		if !ok {
			return
		}
		if err := h.svc.SetOverride(r.Context(), kind, amount); err != nil {
			h.writeServiceError(w, r, err, "", failure)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, successBody)
	}
}

func (h *LedgerHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetBudget(r.Context(), amount); err != nil {
		h.writeServiceError(w, r, err, "", "Failed to update budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, successBody)
}
