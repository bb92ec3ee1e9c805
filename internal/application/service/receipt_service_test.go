package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
)

type stubRenderer struct {
	pages [][]byte
	err   error
}

func (s stubRenderer) RenderPages(path string) ([][]byte, error) {
	return s.pages, s.err
}

type stubScanner struct {
	extraction *port.ReceiptExtraction
	err        error
}

func (s stubScanner) Scan(ctx context.Context, images [][]byte) (*port.ReceiptExtraction, error) {
	return s.extraction, s.err
}

type receiptFixture struct {
	expenses *mockExpenseRepo
	receipts *mockReceiptRepo
	storage  *mockFileStorage
	service  ReceiptService
}

func newReceiptFixture(renderer port.ReceiptRenderer, scanner port.ReceiptScanner) *receiptFixture {
	f := &receiptFixture{
		expenses: newMockExpenseRepo(),
		receipts: newMockReceiptRepo(),
		storage:  newMockFileStorage(),
	}
	f.service = NewReceiptService(f.expenses, f.receipts, f.storage, renderer, scanner, "data/receipts", noopLogger{})
	return f
}

func TestAttachReceipt_StoresFileAndRecord(t *testing.T) {
	f := newReceiptFixture(nil, nil)
	expense := newExpense(1, 10, 4200)
	require.NoError(t, f.expenses.Create(context.Background(), expense))

	receipt, err := f.service.AttachReceipt(context.Background(), expense.ID, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.NotZero(t, receipt.ID)
	assert.Equal(t, "lunch.pdf", receipt.FileName)
	assert.Equal(t, int64(8), receipt.SizeBytes)
	assert.Empty(t, receipt.ExtractedData)

	content, err := f.storage.ReadFile(receipt.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)
}

func TestAttachReceipt_UnknownExpense(t *testing.T) {
	f := newReceiptFixture(nil, nil)

	_, err := f.service.AttachReceipt(context.Background(), 99, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestAttachReceipt_EmptyFile(t *testing.T) {
	f := newReceiptFixture(nil, nil)

	_, err := f.service.AttachReceipt(context.Background(), 1, "lunch.pdf", "application/pdf", nil)
	assert.Error(t, err)
}

func TestAttachReceipt_ExtractionFailureKeepsUpload(t *testing.T) {
	f := newReceiptFixture(
		stubRenderer{pages: [][]byte{{0x89}}},
		stubScanner{err: errors.New("vision unavailable")},
	)
	expense := newExpense(1, 10, 4200)
	require.NoError(t, f.expenses.Create(context.Background(), expense))

	receipt, err := f.service.AttachReceipt(context.Background(), expense.ID, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Empty(t, receipt.ExtractedData)
}

func TestAttachReceipt_RecordsExtraction(t *testing.T) {
	f := newReceiptFixture(
		stubRenderer{pages: [][]byte{{0x89}}},
		stubScanner{extraction: &port.ReceiptExtraction{Merchant: "Blue Cafe", TotalAmount: 42.00, Currency: "USD", Confidence: 0.92}},
	)
	expense := newExpense(1, 10, 4200)
	require.NoError(t, f.expenses.Create(context.Background(), expense))

	receipt, err := f.service.AttachReceipt(context.Background(), expense.ID, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, receipt.ExtractedData, "Blue Cafe")
}

func TestDownloadReceipt(t *testing.T) {
	f := newReceiptFixture(nil, nil)
	expense := newExpense(1, 10, 4200)
	require.NoError(t, f.expenses.Create(context.Background(), expense))

	attached, err := f.service.AttachReceipt(context.Background(), expense.ID, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	receipt, content, err := f.service.DownloadReceipt(context.Background(), attached.ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch.pdf", receipt.FileName)
	assert.Equal(t, "application/pdf", receipt.MimeType)
	assert.Equal(t, []byte("%PDF-1.4"), content)

	_, _, err = f.service.DownloadReceipt(context.Background(), 999)
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestRemoveReceipt(t *testing.T) {
	f := newReceiptFixture(nil, nil)
	expense := newExpense(1, 10, 4200)
	require.NoError(t, f.expenses.Create(context.Background(), expense))

	attached, err := f.service.AttachReceipt(context.Background(), expense.ID, "lunch.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveReceipt(context.Background(), attached.ID))

	remaining, err := f.service.ListReceipts(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = f.storage.ReadFile(attached.FilePath)
	assert.Error(t, err)

	err = f.service.RemoveReceipt(context.Background(), attached.ID)
	assert.ErrorIs(t, err, approval.ErrNotFound)
}
