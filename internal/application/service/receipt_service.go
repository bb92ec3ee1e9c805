package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// ReceiptService stores receipt files for expenses and runs best-effort
// data extraction over them. Extraction failure never fails the upload.
type ReceiptService interface {
	AttachReceipt(ctx context.Context, expenseID int64, fileName, mimeType string, content []byte) (*entity.Receipt, error)
	ListReceipts(ctx context.Context, expenseID int64) ([]*entity.Receipt, error)
	DownloadReceipt(ctx context.Context, receiptID int64) (*entity.Receipt, []byte, error)
	RemoveReceipt(ctx context.Context, receiptID int64) error
}

type receiptServiceImpl struct {
	expenseRepo port.ExpenseRepository
	receiptRepo port.ReceiptRepository
	storage     port.FileStorage
	renderer    port.ReceiptRenderer
	scanner     port.ReceiptScanner
	baseDir     string
	logger      Logger
}

// NewReceiptService creates a new ReceiptService. Renderer and scanner may
// be nil; uploads then skip extraction.
func NewReceiptService(
	expenseRepo port.ExpenseRepository,
	receiptRepo port.ReceiptRepository,
	storage port.FileStorage,
	renderer port.ReceiptRenderer,
	scanner port.ReceiptScanner,
	baseDir string,
	logger Logger,
) ReceiptService {
	return &receiptServiceImpl{
		expenseRepo: expenseRepo,
		receiptRepo: receiptRepo,
		storage:     storage,
		renderer:    renderer,
		scanner:     scanner,
		baseDir:     baseDir,
		logger:      logger,
	}
}

// AttachReceipt saves the file under the expense's folder, records it, and
// runs extraction when a renderer and scanner are configured.
func (s *receiptServiceImpl) AttachReceipt(ctx context.Context, expenseID int64, fileName, mimeType string, content []byte) (*entity.Receipt, error) {
	if len(content) == 0 {
		return nil, errors.New("receipt file is empty")
	}

	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, approval.ErrNotFound
	}

	fullPath := filepath.Join(s.baseDir, fmt.Sprintf("expense_%d", expenseID), filepath.Base(fileName))
	if err := s.storage.SaveFile(fullPath, content); err != nil {
		s.logger.Error("Failed to save receipt file", "error", err, "expense_id", expenseID)
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	receipt := &entity.Receipt{
		ExpenseID: expenseID,
		FileName:  filepath.Base(fileName),
		FilePath:  fullPath,
		MimeType:  mimeType,
		SizeBytes: int64(len(content)),
	}

	if extracted := s.extract(ctx, fullPath); extracted != "" {
		receipt.ExtractedData = extracted
	}

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		s.logger.Error("Failed to record receipt", "error", err, "expense_id", expenseID)
		return nil, err
	}

	s.logger.Info("Receipt attached",
		"receipt_id", receipt.ID,
		"expense_id", expenseID,
		"file", receipt.FileName,
		"extracted", receipt.ExtractedData != "")
	return receipt, nil
}

// ListReceipts retrieves all receipts for an expense.
func (s *receiptServiceImpl) ListReceipts(ctx context.Context, expenseID int64) ([]*entity.Receipt, error) {
	receipts, err := s.receiptRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		s.logger.Error("Failed to list receipts", "error", err, "expense_id", expenseID)
		return nil, err
	}
	return receipts, nil
}

// DownloadReceipt retrieves a receipt record together with its stored file
// content.
func (s *receiptServiceImpl) DownloadReceipt(ctx context.Context, receiptID int64) (*entity.Receipt, []byte, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, nil, fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return nil, nil, approval.ErrNotFound
	}

	content, err := s.storage.ReadFile(receipt.FilePath)
	if err != nil {
		s.logger.Error("Failed to read receipt file", "error", err, "receipt_id", receiptID)
		return nil, nil, fmt.Errorf("read receipt: %w", err)
	}

	return receipt, content, nil
}

// RemoveReceipt deletes a receipt record and its stored file. The record is
// removed first; a failure to delete the file only leaves an orphan on disk.
func (s *receiptServiceImpl) RemoveReceipt(ctx context.Context, receiptID int64) error {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return approval.ErrNotFound
	}

	if err := s.receiptRepo.Delete(ctx, receiptID); err != nil {
		s.logger.Error("Failed to delete receipt record", "error", err, "receipt_id", receiptID)
		return err
	}

	if err := s.storage.DeleteFile(receipt.FilePath); err != nil {
		s.logger.Error("Failed to delete receipt file", "error", err, "receipt_id", receiptID, "path", receipt.FilePath)
	}

	s.logger.Info("Receipt removed",
		"receipt_id", receiptID,
		"expense_id", receipt.ExpenseID,
		"file", receipt.FileName)
	return nil
}

// extract renders and scans the stored file. Any failure is logged and
// swallowed.
func (s *receiptServiceImpl) extract(ctx context.Context, path string) string {
	if s.renderer == nil || s.scanner == nil {
		return ""
	}

	pages, err := s.renderer.RenderPages(path)
	if err != nil {
		s.logger.Error("Failed to render receipt pages", "error", err, "path", path)
		return ""
	}
	if len(pages) == 0 {
		return ""
	}

	extraction, err := s.scanner.Scan(ctx, pages)
	if err != nil {
		s.logger.Error("Receipt extraction failed", "error", err, "path", path)
		return ""
	}

	data, err := json.Marshal(extraction)
	if err != nil {
		return ""
	}
	return string(data)
}
