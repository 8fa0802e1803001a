package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/student-expense-tracker/pkg/money"
)

const (
	exportDateLayout = "2006-01-02"
	exportSheet      = "Expenses"
)

// expenseRow is the CSV shape used for both export and import.
type expenseRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
}

func toRows(expenses []Expense, loc *time.Location) []*expenseRow {
	rows := make([]*expenseRow, len(expenses))
	for i, e := range expenses {
		rows[i] = &expenseRow{
			Date:        e.Date.In(loc).Format(exportDateLayout),
			Description: e.Description,
			Category:    string(e.Category),
			Amount:      e.Amount.StringFixed(2),
		}
	}
	return rows
}

// ExportCSV writes the filtered expenses as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, filter ExpenseFilter) error {
	expenses, err := s.store.ListExpenses(ctx, filter)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(toRows(expenses, s.now().Location()), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExportXLSX writes the filtered expenses as a single-sheet workbook with a total row.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, filter ExpenseFilter) error {
	expenses, err := s.store.ListExpenses(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []interface{}{"Date", "Description", "Category", "Amount (INR)"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	loc := s.now().Location()
	for i, e := range expenses {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			e.Date.In(loc).Format(exportDateLayout),
			e.Description,
			string(e.Category),
			e.Amount.InexactFloat64(),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	totalLabel, _ := excelize.CoordinatesToCellName(3, len(expenses)+2)
	totalCell, _ := excelize.CoordinatesToCellName(4, len(expenses)+2)
	if err := f.SetCellValue(exportSheet, totalLabel, "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(exportSheet, totalCell, Total(expenses).InexactFloat64()); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ImportResult summarises a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCSV reads rows with date, description, amount and optional category
// columns. Comma, semicolon and tab delimiters are detected from the header.
// Rows that fail validation are skipped and reported.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	var rows []*expenseRow
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return s.importRows(ctx, rows, "csv"), nil
}

// ImportXLSX reads the first sheet of a workbook laid out like ExportXLSX
// produces. Rows without a date, such as the total row, are ignored.
func (s *Service) ImportXLSX(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	if idx, err := f.GetSheetIndex(exportSheet); err == nil && idx >= 0 {
		sheet = exportSheet
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(grid) == 0 {
		return &ImportResult{}, nil
	}

	cols := mapColumns(grid[0])
	if cols.date < 0 || cols.amount < 0 {
		return nil, fmt.Errorf("sheet %s needs date and amount columns", sheet)
	}

	rows := make([]*expenseRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := &expenseRow{
			Date:        cell(cells, cols.date),
			Description: cell(cells, cols.description),
			Category:    cell(cells, cols.category),
			Amount:      cell(cells, cols.amount),
		}
		if strings.TrimSpace(row.Date) == "" {
			continue
		}
		rows = append(rows, row)
	}

	return s.importRows(ctx, rows, "xlsx"), nil
}

func (s *Service) importRows(ctx context.Context, rows []*expenseRow, format string) *ImportResult {
	loc := s.now().Location()
	result := &ImportResult{}
	skip := func(line int, err error) {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
	}

	for i, row := range rows {
		line := i + 2
		amount, err := money.Parse(row.Amount)
		if err != nil {
			skip(line, err)
			continue
		}
		date, err := time.ParseInLocation(exportDateLayout, strings.TrimSpace(row.Date), loc)
		if err != nil {
			skip(line, fmt.Errorf("invalid date %q", row.Date))
			continue
		}
		if _, err := s.CreateExpense(ctx, CreateExpenseInput{
			Amount:      amount,
			Category:    row.Category,
			Description: row.Description,
			Date:        &date,
		}); err != nil {
			skip(line, err)
			continue
		}
		result.Imported++
	}

	s.logger.Info("expense import completed",
		slog.String("format", format),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)
	return result
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first non-empty line. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	line := string(data)
	for _, l := range strings.Split(line, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

type columnMap struct {
	date, description, category, amount int
}

// mapColumns locates columns by header name, case-insensitively. Headers
// such as "Amount (INR)" match on their leading word.
func mapColumns(headers []string) columnMap {
	cols := columnMap{date: -1, description: -1, category: -1, amount: -1}
	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h))
		if fields := strings.Fields(name); len(fields) > 0 {
			name = fields[0]
		}
		switch name {
		case "date":
			cols.date = i
		case "description":
			cols.description = i
		case "category":
			cols.category = i
		case "amount":
			cols.amount = i
		}
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
