package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

const sheetName = "Expenses"

var headers = []string{
	"Public ID", "Submitter ID", "Description", "Category",
	"Amount", "Currency", "Status", "Status Reason", "Submitted At", "Decided At",
}

// Exporter writes a company's expense claims to an Excel workbook.
type Exporter struct {
	expenseRepo port.ExpenseRepository
	logger      *zap.Logger
}

// NewExporter creates a new report exporter
func NewExporter(expenseRepo port.ExpenseRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

// ExportExpenses writes all of a company's expenses to w as an .xlsx
// workbook, newest first.
func (e *Exporter) ExportExpenses(ctx context.Context, companyID int64, limit int, w io.Writer) error {
	expenses, err := e.expenseRepo.List(ctx, companyID, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to load expenses: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		e.setCell(f, cell, header)
	}

	for row, expense := range expenses {
		e.writeExpenseRow(f, row+2, expense)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Expense report exported",
		zap.Int64("company_id", companyID),
		zap.Int("rows", len(expenses)))
	return nil
}

func (e *Exporter) writeExpenseRow(f *excelize.File, row int, expense *entity.Expense) {
	decidedAt := ""
	if expense.DecidedAt != nil {
		decidedAt = expense.DecidedAt.Format("2006-01-02 15:04:05")
	}

	values := []interface{}{
		expense.PublicID,
		expense.SubmitterID,
		expense.Description,
		expense.Category,
		float64(expense.AmountCents) / 100,
		expense.Currency,
		expense.Status.String(),
		expense.StatusReason,
		expense.SubmittedAt.Format("2006-01-02 15:04:05"),
		decidedAt,
	}
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		e.setCell(f, cell, value)
	}
}

func (e *Exporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
