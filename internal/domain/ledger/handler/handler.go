// Package handler exposes the ledger as a JSON REST API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 5 << 20
	dateLayout     = "2006-01-02"
)

// LedgerHandler serves the expense, debt and stats endpoints.
type LedgerHandler struct {
	svc    *ledger.Service
	loc    *time.Location
	logger *slog.Logger
}

// NewLedgerHandler creates a handler. Calendar dates in requests are read in loc.
func NewLedgerHandler(svc *ledger.Service, loc *time.Location, logger *slog.Logger) *LedgerHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerHandler{svc: svc, loc: loc, logger: logger}
}

// Register mounts every ledger route on r. Literal paths are registered
// before the {id} patterns so they are not captured as ids.
func (h *LedgerHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/expenses/analytics/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/expenses/export", h.ExportExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses/import", h.ImportExpenses).Methods(http.MethodPost)
	api.HandleFunc("/expenses", h.ListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", h.CreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", h.GetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", h.UpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", h.DeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/debts", h.ListDebts).Methods(http.MethodGet)
	api.HandleFunc("/debts", h.CreateDebt).Methods(http.MethodPost)
	api.HandleFunc("/debts/{id}/settle", h.SettleDebt).Methods(http.MethodPatch)
	api.HandleFunc("/debts/{id}", h.DeleteDebt).Methods(http.MethodDelete)

	api.HandleFunc("/stats/set-today", h.setOverride(ledger.OverrideToday, "today's spending")).Methods(http.MethodPost)
	api.HandleFunc("/stats/set-month", h.setOverride(ledger.OverrideMonth, "monthly spending")).Methods(http.MethodPost)
	api.HandleFunc("/stats/set-avg-daily", h.setOverride(ledger.OverrideAvgDaily, "average daily spending")).Methods(http.MethodPost)
	api.HandleFunc("/stats/set-budget", h.SetBudget).Methods(http.MethodPost)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func (h *LedgerHandler) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, h.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func isValidation(err error) bool {
	return errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrMissingDescription) ||
		errors.Is(err, ledger.ErrMissingFriendName) ||
		errors.Is(err, ledger.ErrUnknownCategory) ||
		errors.Is(err, ledger.ErrUnknownDirection)
}

// writeServiceError maps ledger errors onto status codes. notFound and
// failure are the client-facing messages for those two cases.
func (h *LedgerHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound, failure string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, notFound)
	case isValidation(err):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), failure, slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, failure)
	}
}
