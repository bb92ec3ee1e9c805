package port

import (
	"context"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// Notifier delivers workflow notifications to users. Implementations are
// best-effort; the coordinator never fails an operation on notification
// errors.
type Notifier interface {
	// NotifyStepPending tells an approver a step now awaits their decision.
	NotifyStepPending(ctx context.Context, approver *entity.User, expense *entity.Expense, step *entity.ApprovalStep) error

	// NotifyExpenseFinalized tells the submitter their expense reached a
	// terminal status.
	NotifyExpenseFinalized(ctx context.Context, submitter *entity.User, expense *entity.Expense) error
}

// ReceiptExtraction is the structured result of scanning a receipt.
type ReceiptExtraction struct {
	Merchant    string  `json:"merchant"`
	Date        string  `json:"date"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
	Confidence  float64 `json:"confidence"`
}

// ReceiptScanner extracts structured data from receipt page images.
type ReceiptScanner interface {
	Scan(ctx context.Context, images [][]byte) (*ReceiptExtraction, error)
}

// ReceiptRenderer converts an uploaded receipt file into page images the
// scanner can read.
type ReceiptRenderer interface {
	RenderPages(path string) ([][]byte, error)
}

// FileStorage persists uploaded receipt files.
type FileStorage interface {
	SaveFile(fullPath string, content []byte) error
	ReadFile(fullPath string) ([]byte, error)
	DeleteFile(fullPath string) error
}
