package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type expenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

// filterFromQuery reads category, startDate and endDate. Both dates are
// inclusive calendar days.
func (h *LedgerHandler) filterFromQuery(r *http.Request) (ledger.ExpenseFilter, error) {
	var filter ledger.ExpenseFilter
	q := r.URL.Query()

	if raw := q.Get("category"); raw != "" {
		c, ok := ledger.ParseCategory(raw)
		if !ok {
			return filter, fmt.Errorf("unknown category %q", raw)
		}
		filter.Category = &c
	}
	if raw := q.Get("startDate"); raw != "" {
		from, err := h.parseDate(raw)
		if err != nil {
			return filter, err
		}
		from = ledger.StartOfDay(from.In(h.loc))
		filter.From = &from
	}
	if raw := q.Get("endDate"); raw != "" {
		to, err := h.parseDate(raw)
		if err != nil {
			return filter, err
		}
		to = ledger.StartOfDay(to.In(h.loc)).AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &to
	}
	return filter, nil
}

func (h *LedgerHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err, "", "Failed to fetch expenses")
		return
	}
	if expenses == nil {
		expenses = []ledger.Expense{}
	}
	middleware.WriteJSON(w, http.StatusOK, expenses)
}

func (h *LedgerHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
		return
	}
	e, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Expense not found", "Failed to fetch expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

func (h *LedgerHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Amount == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid expense data")
		return
	}

	in := ledger.CreateExpenseInput{Amount: *req.Amount}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Date != nil && *req.Date != "" {
		date, err := h.parseDate(*req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid expense data")
			return
		}
		in.Date = &date
	}

	e, err := h.svc.CreateExpense(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "", "Failed to create expense")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, e)
}

func (h *LedgerHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid expense data")
		return
	}

	in := ledger.UpdateExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != nil {
		date, err := h.parseDate(*req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid expense data")
			return
		}
		in.Date = &date
	}

	e, err := h.svc.UpdateExpense(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "Expense not found", "Failed to update expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Expense not found", "Failed to delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportExpenses streams the filtered expenses as csv (default) or xlsx.
func (h *LedgerHandler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	stamp := time.Now().In(h.loc).Format(dateLayout)

	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.csv"`, stamp))
		err = h.svc.ExportCSV(r.Context(), w, filter)
	case "xlsx":
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.xlsx"`, stamp))
		err = h.svc.ExportXLSX(r.Context(), w, filter)
	default:
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		// headers may already be sent; log only
		h.logger.ErrorContext(r.Context(), "expense export failed", "format", format, "error", err)
	}
}

// ImportExpenses accepts a CSV or XLSX file either as the "file" field of a
// multipart form or as the raw request body. Workbooks are recognised by
// file extension or content type.
func (h *LedgerHandler) ImportExpenses(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	isXLSX := strings.HasPrefix(r.Header.Get("Content-Type"), xlsxContentType)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "A CSV or XLSX file is required")
			return
		}
		defer file.Close()
		src = file
		isXLSX = strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") ||
			strings.HasPrefix(header.Header.Get("Content-Type"), xlsxContentType)
	}

	var (
		result *ledger.ImportResult
		err    error
	)
	if isXLSX {
		result, err = h.svc.ImportXLSX(r.Context(), src)
	} else {
		result, err = h.svc.ImportCSV(r.Context(), src)
	}
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}
