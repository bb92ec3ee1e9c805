package entity

import "time"

// Receipt is an uploaded receipt file attached to an expense. ExtractedData
// holds the raw JSON produced by the receipt scanner, when extraction ran.
type Receipt struct {
	ID            int64     `json:"id"`
	ExpenseID     int64     `json:"expense_id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	MimeType      string    `json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ExtractedData string    `json:"extracted_data,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
