package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/sqlite"
)

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new receipt record
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		INSERT INTO receipts (expense_id, file_name, file_path, mime_type, size_bytes, extracted_data)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var extractedData sql.NullString
	if receipt.ExtractedData != "" {
		extractedData = sql.NullString{String: receipt.ExtractedData, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		receipt.ExpenseID,
		receipt.FileName,
		receipt.FilePath,
		receipt.MimeType,
		receipt.SizeBytes,
		extractedData,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt",
			zap.Int64("expense_id", receipt.ExpenseID),
			zap.String("file_name", receipt.FileName),
			zap.Error(err))
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	receipt.ID = id
	return nil
}

// GetByID retrieves a single receipt record, or nil when it does not exist
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	query := `
		SELECT id, expense_id, file_name, file_path, mime_type, size_bytes, extracted_data, created_at
		FROM receipts
		WHERE id = ?
	`

	var receipt entity.Receipt
	var extractedData sql.NullString

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&receipt.ID,
		&receipt.ExpenseID,
		&receipt.FileName,
		&receipt.FilePath,
		&receipt.MimeType,
		&receipt.SizeBytes,
		&extractedData,
		&receipt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if extractedData.Valid {
		receipt.ExtractedData = extractedData.String
	}
	return &receipt, nil
}

// GetByExpenseID retrieves all receipts attached to an expense
func (r *ReceiptRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Receipt, error) {
	query := `
		SELECT id, expense_id, file_name, file_path, mime_type, size_bytes, extracted_data, created_at
		FROM receipts
		WHERE expense_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get receipts by expense ID",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*entity.Receipt
	for rows.Next() {
		var receipt entity.Receipt
		var extractedData sql.NullString

		err := rows.Scan(
			&receipt.ID,
			&receipt.ExpenseID,
			&receipt.FileName,
			&receipt.FilePath,
			&receipt.MimeType,
			&receipt.SizeBytes,
			&extractedData,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}

		if extractedData.Valid {
			receipt.ExtractedData = extractedData.String
		}

		receipts = append(receipts, &receipt)
	}

	return receipts, rows.Err()
}

// Delete removes a receipt record
func (r *ReceiptRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM receipts WHERE id = ?`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id); err != nil {
		r.logger.Error("Failed to delete receipt",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
