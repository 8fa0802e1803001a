package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

type debtRequest struct {
	FriendName  string          `json:"friendName"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
}

func (h *LedgerHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.svc.ListDebts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "", "Failed to fetch debts")
		return
	}
	if debts == nil {
		debts = []ledger.Debt{}
	}
	middleware.WriteJSON(w, http.StatusOK, debts)
}

func (h *LedgerHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid debt data")
		return
	}
	d, err := h.svc.CreateDebt(r.Context(), ledger.CreateDebtInput{
		FriendName:  req.FriendName,
		Amount:      req.Amount,
		Direction:   req.Type,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "", "Failed to create debt")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, d)
}

func (h *LedgerHandler) SettleDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Debt not found")
		return
	}
	d, err := h.svc.SettleDebt(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Debt not found", "Failed to settle debt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

func (h *LedgerHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Debt not found")
		return
	}
	if err := h.svc.DeleteDebt(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Debt not found", "Failed to delete debt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
